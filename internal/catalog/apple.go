package catalog

// Apple sample attribute keys
const (
	KeyExposed          = "isExposed"
	KeyInternalAndSplit = "internalAndSplit"
	KeyInternal         = "isInternal"
	KeySplit            = "isSplit"
	KeyRow              = "row"
	KeyWeight           = "weight"
	KeyColor            = "colorPercentage"
	KeyBackgroundColor  = "backgroundColorPercentage"
	KeyPressure         = "pressure"
	KeyPressure1        = "pressure1"
	KeyPressure2        = "pressure2"
	KeyBrix             = "brix"
	KeyStarch           = "starch"
)

// AppleEntries is the apple sample inspection sequence
func AppleEntries() []Entry {
	return []Entry{
		{Key: KeyExposed, Label: "Is Exposed", Kind: Boolean, Group: Single},
		{Key: KeyInternalAndSplit, Label: "Internal and Split", Kind: BooleanPair, Group: Double, Fields: []SubField{
			{Key: KeyInternal, Label: "Internal"},
			{Key: KeySplit, Label: "Split"},
		}},
		{Key: KeyRow, Label: "Row", Kind: Text, Group: Single},
		{Key: KeyWeight, Label: "Weight (g)", Kind: Numeric, Group: Single},
		{Key: KeyColor, Label: "Color %", Kind: Numeric, Group: Single},
		{Key: KeyBackgroundColor, Label: "Background Color %", Kind: Numeric, Group: Single},
		{Key: KeyPressure, Label: "Pressure 1 & 2", Kind: NumericPair, Group: Double, Fields: []SubField{
			{Key: KeyPressure1, Label: "Pressure 1"},
			{Key: KeyPressure2, Label: "Pressure 2"},
		}},
		{Key: KeyBrix, Label: "Brix", Kind: Numeric, Group: Single},
		{Key: KeyStarch, Label: "Starch", Kind: Numeric, Group: Single},
	}
}

// Default returns the apple sample catalog
func Default() *Catalog {
	c, err := New(AppleEntries()...)
	if err != nil {
		panic(err) // static table
	}
	return c
}
