package codec

// Codec translates records to and from their stored byte form. Marshal is
// deterministic for struct values: encoding the same value twice yields the
// same bytes.
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}
