package draft

// Update is a closed set of per-item edits. The unexported method keeps the set
// closed to this package so plan can switch over it exhaustively.
type Update interface {
	key() string
	isUpdate()
}

// SetFlag sets a boolean field, or one half of a boolean pair
type SetFlag struct {
	Key   string
	Value bool
}

// SetSingle sets a text or numeric field, or one half of a numeric pair
type SetSingle struct {
	Key   string
	Value string
}

// SetBooleanPair sets both halves of a boolean pair entry together
type SetBooleanPair struct {
	Key    string // entry key, e.g. internalAndSplit
	First  bool
	Second bool
}

// SetNumericPair sets both halves of a numeric pair entry together
type SetNumericPair struct {
	Key    string // entry key, e.g. pressure
	First  string
	Second string
}

func (u SetFlag) key() string        { return u.Key }
func (u SetSingle) key() string      { return u.Key }
func (u SetBooleanPair) key() string { return u.Key }
func (u SetNumericPair) key() string { return u.Key }

func (SetFlag) isUpdate()        {}
func (SetSingle) isUpdate()      {}
func (SetBooleanPair) isUpdate() {}
func (SetNumericPair) isUpdate() {}
