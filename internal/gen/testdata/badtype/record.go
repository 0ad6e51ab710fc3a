package badtype

type Reading struct {
	Taken float64 `store:"key"`
	Value float64
}

type Sample struct {
	ID   uint32          `store:"key"`
	Tags map[string]bool `store:"index"`
}

type Typo struct {
	ID uint32 `store:"ky"`
}

type Alias = int
