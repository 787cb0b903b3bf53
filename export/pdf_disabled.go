//go:build nopdf

package export

func newPDFRenderer() (Renderer, error) {
	return nil, ErrUnavailable
}
