package transaction

// Index is a lookup structure over previously stored transactions, built
// once per sync batch so each incoming transaction matches in O(1).
type Index struct {
	byID        map[string]*Transaction
	byPendingID map[string]*Transaction
	byHeuristic map[heuristicKey]*Transaction
}

type heuristicKey struct {
	accountID string
	name      string
	amount    float64
}

// NewIndex builds an Index from stored transactions.
func NewIndex(stored []*Transaction) *Index {
	idx := &Index{
		byID:        make(map[string]*Transaction, len(stored)),
		byPendingID: make(map[string]*Transaction),
		byHeuristic: make(map[heuristicKey]*Transaction, len(stored)),
	}
	for _, t := range stored {
		idx.byID[t.ID] = t
		if t.PendingTransactionID != nil && *t.PendingTransactionID != "" {
			idx.byPendingID[*t.PendingTransactionID] = t
		}
		idx.byHeuristic[heuristicKey{t.AccountID, t.Name, t.Amount}] = t
	}
	return idx
}

// Match finds the stored transaction corresponding to an incoming one.
//
// Precedence: exact id match (against stored ids or stored pending ids,
// and against the incoming pending id), then the (account, name, amount)
// heuristic. The heuristic covers providers that issue a brand-new id when
// a pending transaction posts; without it the user's label would be lost
// on every pending->posted transition.
func (idx *Index) Match(incoming *Transaction) *Transaction {
	if t, ok := idx.byID[incoming.ID]; ok {
		return t
	}
	if t, ok := idx.byPendingID[incoming.ID]; ok {
		return t
	}
	if incoming.PendingTransactionID != nil && *incoming.PendingTransactionID != "" {
		if t, ok := idx.byID[*incoming.PendingTransactionID]; ok {
			return t
		}
	}
	if t, ok := idx.byHeuristic[heuristicKey{incoming.AccountID, incoming.Name, incoming.Amount}]; ok {
		return t
	}
	return nil
}

// CarryLabel copies the stored transaction's label onto incoming when a
// match exists; otherwise incoming keeps an empty label.
func (idx *Index) CarryLabel(incoming *Transaction) {
	if matched := idx.Match(incoming); matched != nil {
		incoming.Label = matched.Label
	}
}
