package protocol

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestKindOfWrappedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrTruncated, KindTruncated},
		{fmt.Errorf("%w: frame at offset 8", ErrMalformed), KindMalformed},
		{fmt.Errorf("parse: %w", fmt.Errorf("%w: tag 77", ErrUnknownFrameType)), KindUnknownFrameType},
		{errors.Join(ErrSignatureInvalid, io.EOF), KindSignatureInvalid},
		{io.EOF, KindOther},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("KindOf(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}
