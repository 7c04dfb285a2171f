package domain

// TradedPair is a market on one exchange where Base is the unit used to
// buy or sell To. For graph purposes the pair is bidirectional: holding
// either currency lets you reach the other.
type TradedPair struct {
	Name         string // exchange-native market name, e.g. "XETHXXBT"
	Exchange     string
	Base         string // quote unit symbol
	BaseFullName string
	To           string // traded asset symbol
	ToFullName   string
}

// PairsByBase indexes traded pairs as base -> set of reachable "to"
// currencies. Used to decide whether a hop a->b is quoted directly or
// must be taken through the inverted (b, a) market.
func PairsByBase(pairs []TradedPair) map[string]map[string]bool {
	result := make(map[string]map[string]bool, len(pairs))
	for _, tp := range pairs {
		set := result[tp.Base]
		if set == nil {
			set = make(map[string]bool)
			result[tp.Base] = set
		}
		set[tp.To] = true
	}
	return result
}
