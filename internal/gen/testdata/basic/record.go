package basic

// Entry is a plain record with a basic key and one index.
type Entry struct {
	ID   uint32 `store:"key"`
	Name string `store:"index"`
	Note string
}
