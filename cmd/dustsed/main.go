// Package main is the dustsed command.
//
// It does aperture photometry on FITS maps using DS9 region files, turns
// radio moment maps into HI masses, and fits modified blackbodies to
// tables of far infrared photometry.
//
// Usage:
//
//	dustsed photometry [--errors err.fits] image.fits regions.reg
//	dustsed himass --distance 16.5 --distance-error 1.2 mom0.fits regions.reg
//	dustsed fit -o results.csv --markdown results.md photometry.csv
//	dustsed config
//
// See --help for all available options.
package main

func main() {
	Execute()
}
