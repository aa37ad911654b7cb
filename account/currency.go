package account

type Currency string

const (
	USD Currency = "USD"
	SEK Currency = "SEK"
	GBP Currency = "GBP"
)

func (c Currency) Valid() bool {
	switch c {
	case USD, SEK, GBP:
		return true
	}
	return false
}
