package unexported

type Session struct {
	id    string `store:"key"`
	Agent string
}
