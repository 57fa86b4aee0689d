package videoframe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tauraamui/xerror"
)

var ErrInvalidRational = errors.New("invalid rational")

// Rational is an exact frame rate such as 30000/1001.
type Rational struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

// ParseRational accepts "N/D" or a bare integer "N". It never evaluates
// anything beyond two base 10 integers.
func ParseRational(s string) (Rational, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return Rational{}, xerror.Errorf("%w: empty string", ErrInvalidRational)
	}

	numStr, denStr := s, "1"
	if i := strings.IndexByte(s, '/'); i >= 0 {
		numStr, denStr = s[:i], s[i+1:]
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return Rational{}, xerror.Errorf("%w: numerator of %q: %v", ErrInvalidRational, s, err)
	}
	den, err := strconv.ParseInt(strings.TrimSpace(denStr), 10, 64)
	if err != nil {
		return Rational{}, xerror.Errorf("%w: denominator of %q: %v", ErrInvalidRational, s, err)
	}
	if den == 0 {
		return Rational{}, xerror.Errorf("%w: zero denominator in %q", ErrInvalidRational, s)
	}
	if den < 0 {
		num, den = -num, -den
	}
	return Rational{Num: num, Den: den}, nil
}

// RationalFromFloat recovers an exact rate from a float reported by a
// capture backend. NTSC style rates snap to N*1000/1001.
func RationalFromFloat(fps float64) Rational {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return Rational{}
	}
	if whole := math.Round(fps); math.Abs(fps-whole) < 1e-3 {
		return Rational{Num: int64(whole), Den: 1}
	}
	ntsc := math.Round(fps * 1001 / 1000)
	if math.Abs(fps-ntsc*1000/1001) < 1e-3 {
		return Rational{Num: int64(ntsc) * 1000, Den: 1001}
	}
	return Rational{Num: int64(math.Round(fps * 1000)), Den: 1000}.Reduce()
}

func (r Rational) Valid() bool {
	return r.Num > 0 && r.Den > 0
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Rational) Reduce() Rational {
	if r.Den == 0 {
		return r
	}
	g := gcd(abs(r.Num), abs(r.Den))
	if g == 0 {
		return r
	}
	return Rational{Num: r.Num / g, Den: r.Den / g}
}

func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
