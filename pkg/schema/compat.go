package schema

// wideningRules lists the direct safe widenings between data types. A
// widening never loses information, so rules and the merge engine treat it
// as non-breaking. The full relation is the transitive closure of this table.
var wideningRules = map[DataType][]DataType{
	TypeInteger:  {TypeLong},
	TypeLong:     {TypeDecimal},
	TypeDecimal:  {TypeFloat},
	TypeFloat:    {TypeDouble},
	TypeDouble:   {TypeString},
	TypeBoolean:  {TypeString},
	TypeDate:     {TypeDateTime},
	TypeDateTime: {TypeString},
}

// CanWiden reports whether changing a property from one type to another is a
// safe widening. Identical types are trivially safe.
func CanWiden(from, to DataType) bool {
	if from == to {
		return true
	}
	seen := map[DataType]bool{from: true}
	frontier := []DataType{from}
	for len(frontier) > 0 {
		next := frontier[:0:0]
		for _, t := range frontier {
			for _, w := range wideningRules[t] {
				if w == to {
					return true
				}
				if !seen[w] {
					seen[w] = true
					next = append(next, w)
				}
			}
		}
		frontier = next
	}
	return false
}
