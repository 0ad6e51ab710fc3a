package twokeys

type Pair struct {
	Left  uint32 `store:"key"`
	Right uint32 `store:"key"`
}
