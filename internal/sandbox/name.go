package sandbox

import (
	"math/rand/v2"
	"strings"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomQualifier renders a random fraction in base 36 with the
// non-alphanumeric characters stripped, e.g. "0k2j4h9x1q3". Qualifiers
// are lowercase alphanumeric and safe for repository names.
func randomQualifier() string {
	f := rand.Float64()

	var b strings.Builder
	b.WriteByte('0') // the fraction's integer part
	for range 10 {
		f *= 36
		d := int(f)
		b.WriteByte(base36[d])
		f -= float64(d)
	}
	return b.String()
}
