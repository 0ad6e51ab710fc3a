package nokey

type Setting struct {
	Name  string
	Value string `store:"index"`
}
