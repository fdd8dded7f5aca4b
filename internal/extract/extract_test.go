package extract

import (
	"context"
	"testing"

	"docchat/internal/tester"
)

func TestPDFRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":     nil,
		"plaintext": []byte("this is not a pdf"),
		"truncated": []byte("%PDF-1.4\n1 0 obj\n<<"),
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewPDF().Extract(context.Background(), data)
			tester.ErrIs(t, err, ErrExtraction)
		})
	}
}

func TestPDFHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPDF().Extract(ctx, []byte("%PDF-1.4"))
	tester.ErrIs(t, err, context.Canceled)
}
