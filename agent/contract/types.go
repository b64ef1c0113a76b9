package contract

import (
	"encoding/json"
	"strings"
	"time"
)

type Category string

const (
	CategoryRefund   Category = "refund"
	CategoryShipping Category = "shipping"
	CategoryDefect   Category = "defect"
	CategoryGeneral  Category = "general"
)

// Categories is the closed label set, in the order offered to the classifier.
var Categories = []Category{CategoryRefund, CategoryShipping, CategoryDefect, CategoryGeneral}

var categorySynonyms = map[string]Category{
	"refund":    CategoryRefund,
	"return":    CategoryRefund,
	"shipping":  CategoryShipping,
	"delivery":  CategoryShipping,
	"shipment":  CategoryShipping,
	"defect":    CategoryDefect,
	"defective": CategoryDefect,
	"broken":    CategoryDefect,
	"general":   CategoryGeneral,
	"other":     CategoryGeneral,
}

// ParseCategory maps free classifier output onto the closed label set.
// The earliest recognised label in the text wins; anything else is general.
func ParseCategory(raw string) Category {
	text := strings.ToLower(raw)
	best := CategoryGeneral
	bestAt := -1
	for word, cat := range categorySynonyms {
		idx := indexWord(text, word)
		if idx < 0 {
			continue
		}
		if bestAt < 0 || idx < bestAt {
			best = cat
			bestAt = idx
		}
	}
	return best
}

func indexWord(text, word string) int {
	offset := 0
	for {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return -1
		}
		start := offset + idx
		end := start + len(word)
		if (start == 0 || !isLetter(text[start-1])) && (end == len(text) || !isLetter(text[end])) {
			return start
		}
		offset = end
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

type Ticket struct {
	Query   string `json:"query"`
	OrderID string `json:"order_id,omitempty"`
	// RunID is optional; the engine assigns one when empty.
	RunID string `json:"run_id,omitempty"`
}

type OrderRecord struct {
	OrderID     string  `json:"order_id"`
	CustomerID  string  `json:"customer_id"`
	Product     string  `json:"product"`
	Status      string  `json:"status"`
	LastUpdate  string  `json:"last_update"`
	TotalAmount float64 `json:"total_amount"`
}

// OrderInfo is either the looked-up record or an error marker, never both.
type OrderInfo struct {
	Record *OrderRecord
	Error  string
}

func (o *OrderInfo) Failed() bool {
	return o != nil && o.Record == nil
}

func (o OrderInfo) MarshalJSON() ([]byte, error) {
	if o.Record != nil {
		return json.Marshal(o.Record)
	}
	return json.Marshal(map[string]string{"error": o.Error})
}

func (o *OrderInfo) UnmarshalJSON(data []byte) error {
	var shape struct {
		Error   *string `json:"error"`
		OrderID string  `json:"order_id"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return err
	}
	if shape.Error != nil && shape.OrderID == "" {
		*o = OrderInfo{Error: *shape.Error}
		return nil
	}
	var rec OrderRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*o = OrderInfo{Record: &rec}
	return nil
}

type Snippet struct {
	ID     string  `json:"id,omitempty"`
	Source string  `json:"source,omitempty"`
	Text   string  `json:"text"`
	Score  float64 `json:"score,omitempty"`
}

// RunResult is the externally visible outcome of one run.
type RunResult struct {
	RunID         string     `json:"run_id"`
	Summary       string     `json:"summary"`
	Category      Category   `json:"category"`
	OrderInfo     *OrderInfo `json:"order_info"`
	KBSources     []string   `json:"kb_sources"`
	FinalResponse string     `json:"final_response"`
}

type RunCompletedEvent struct {
	RunID       string    `json:"run_id"`
	Category    Category  `json:"category"`
	HasOrder    bool      `json:"has_order"`
	OrderFailed bool      `json:"order_failed"`
	KBHits      int       `json:"kb_hits"`
	CompletedAt time.Time `json:"completed_at"`
}
