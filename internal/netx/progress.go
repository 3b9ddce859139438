package netx

import "io"

// progressReader wraps r and reports the cumulative fraction read out of
// total. With an unknown total no callbacks are made.
type progressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    Progress
}

func newProgressReader(r io.Reader, total int64, fn Progress) *progressReader {
	return &progressReader{r: r, total: total, fn: fn}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.fn != nil && p.total > 0 {
		fraction := float64(p.read) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}
		p.fn(fraction)
	}
	return n, err
}
