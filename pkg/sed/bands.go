package sed

import "fmt"

// A Band is one of the survey bands the photometry tables carry.
type Band struct {
	Name       string
	Wavelength float64 // microns
}

func (b Band) Frequency() float64 { return WavelengthToFrequency(b.Wavelength) }

func (b Band) String() string { return fmt.Sprintf("%s(%gum)", b.Name, b.Wavelength) }

// Bands is the column order of the photometry tables: MIPS 24um, the three
// PACS bands and the three SPIRE bands.
var Bands = []Band{
	{"MIPS24", 24},
	{"PACS70", 70},
	{"PACS100", 100},
	{"PACS160", 160},
	{"SPIRE250", 250},
	{"SPIRE350", 350},
	{"SPIRE500", 500},
}
