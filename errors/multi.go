package errors

import (
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// Fully nil input produces a nil result, so the output of this function can
// be tested as usual:
//   err = errors.Append(err, validate(x))
//   if err != nil { ... }
func Append(errs ...error) error {
	var result multiError
	for _, e := range errs {
		switch e := e.(type) {
		case nil:
			continue
		case multiError:
			result = append(result, e...)
		default:
			result = append(result, e)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

type multiError []error

var _ unpacker = (multiError)(nil)

func (errs multiError) Unpack() []error {
	return errs
}

func (errs multiError) Error() string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
