// Package sed fits modified blackbody spectra to multi-band dust photometry.
package sed

import (
	"math"
)

// Physical constants, CGS
const (
	SpeedOfLight      = 2.99792458e10  // cm/s
	PlanckConstant    = 6.62607015e-27 // erg s
	BoltzmannConstant = 1.380649e-16   // erg/K
	ProtonMass        = 1.67262192e-24 // g
	JanskyCGS         = 1e-23          // erg/s/cm^2/Hz
)

// Dust opacity law: kappa = Kappa0/GasToDust * (nu/Nu0)^beta, per gram of gas
const (
	Kappa0    = 4.0   // cm^2/g of dust
	Nu0       = 505e9 // Hz
	GasToDust = 100.0
)

// DefaultMuH2 is the mean molecular weight per H2 molecule, used as the
// fixed extra parameter when it isn't being fitted.
const DefaultMuH2 = 2.8

// A Model evaluates a flux density (Jy/sr) at a frequency, for a given
// temperature (K), emissivity index, column density (cm^-2) and extra
// scale parameter.
type Model func(nu, temperature, beta, column, extra float64) float64

// Planck is B_nu(T) in erg/s/cm^2/Hz/sr
func Planck(nu, temperature float64) float64 {
	x := PlanckConstant * nu / (BoltzmannConstant * temperature)
	return 2 * PlanckConstant * nu * nu * nu / (SpeedOfLight * SpeedOfLight) / math.Expm1(x)
}

// Opacity is the dust opacity per gram of gas at nu, in cm^2/g
func Opacity(nu, beta float64) float64 {
	return Kappa0 / GasToDust * math.Pow(nu/Nu0, beta)
}

// ModifiedBlackbody is B_nu(T) * (1 - exp(-tau)) in Jy/sr, where the
// optical depth tau = muh2 * m_p * kappa_nu * column.
func ModifiedBlackbody(nu, temperature, beta, column, muh2 float64) float64 {
	tau := muh2 * ProtonMass * Opacity(nu, beta) * column
	return Planck(nu, temperature) * -math.Expm1(-tau) / JanskyCGS
}

// WavelengthToFrequency takes microns to Hz
func WavelengthToFrequency(um float64) float64 { return SpeedOfLight / (um * 1e-4) }
