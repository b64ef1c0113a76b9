package synthetic

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
	orderapix "github.com/tanpawarit/Chative-Support-Ticket-Workflow/pkg/orderapi"
)

const (
	TicketsFile   = "tickets.csv"
	timestampForm = "2006-01-02T15:04:05.000000"
)

var (
	Products = []string{"Aurora Headphones", "Nimbus Keyboard", "Bolt Charger", "Terra Bottle", "Luma Lamp"}
	Statuses = []string{"processing", "shipped", "delivered", "returned", "cancelled"}
	Channels = []string{"email", "chat", "webform"}
	Loyalty  = []string{"bronze", "silver", "gold"}
)

type ticketTemplate struct {
	category string
	text     string
}

var ticketTemplates = []ticketTemplate{
	{category: "refund", text: "I received the wrong color for my {product} and want a refund. Order ID: {order_id}"},
	{category: "delivery", text: "My package {order_id} hasn’t arrived yet. Tracking hasn’t updated in days."},
	{category: "defect", text: "The {product} I bought (order {order_id}) is not working properly."},
	{category: "other", text: "I need to update my account information. Can you help?"},
}

type Config struct {
	Customers int   `envconfig:"CUSTOMERS" default:"40"`
	Orders    int   `envconfig:"ORDERS" default:"60"`
	Tickets   int   `envconfig:"TICKETS" default:"80"`
	Seed      int64 `envconfig:"SEED" default:"42"`
}

// TicketRow is one line of tickets.csv.
type TicketRow struct {
	TicketID   string
	CustomerID string
	Channel    string
	Text       string
	CreatedAt  string
	OrderID    string
	// Category is the template the ticket was drawn from; it is not written.
	Category string
}

type Dataset struct {
	Customers []orderapix.Customer
	Orders    []contractx.OrderRecord
	Tickets   []TicketRow
}

// Generate builds a dataset. The same seed and clock give the same output.
func Generate(cfg Config, now time.Time) Dataset {
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))
	now = now.UTC()

	customers := make([]orderapix.Customer, 0, cfg.Customers)
	for i := 0; i < cfg.Customers; i++ {
		customers = append(customers, orderapix.Customer{
			CustomerID: fmt.Sprintf("C%d", 1000+i),
			Name:       fmt.Sprintf("Customer %d", i),
			Email:      fmt.Sprintf("customer%d@example.com", i),
			Loyalty:    pick(rng, Loyalty),
		})
	}

	orders := make([]contractx.OrderRecord, 0, cfg.Orders)
	for i := 0; i < cfg.Orders; i++ {
		var customerID string
		if len(customers) > 0 {
			customerID = customers[rng.IntN(len(customers))].CustomerID
		}
		updated := now.Add(-time.Duration(rng.IntN(31)) * 24 * time.Hour)
		orders = append(orders, contractx.OrderRecord{
			OrderID:     fmt.Sprintf("O%d", 2000+i),
			CustomerID:  customerID,
			Product:     pick(rng, Products),
			Status:      pick(rng, Statuses),
			LastUpdate:  updated.Format(timestampForm),
			TotalAmount: math.Round((10+rng.Float64()*240)*100) / 100,
		})
	}

	ids := &rngReader{rng: rng}
	tickets := make([]TicketRow, 0, cfg.Tickets)
	for i := 0; i < cfg.Tickets; i++ {
		tmpl := ticketTemplates[rng.IntN(len(ticketTemplates))]

		var order *contractx.OrderRecord
		if rng.IntN(2) == 0 && len(orders) > 0 {
			order = &orders[rng.IntN(len(orders))]
		}
		product, orderID := "item", ""
		if order != nil {
			product, orderID = order.Product, order.OrderID
		}
		text := strings.NewReplacer("{product}", product, "{order_id}", orderID).Replace(tmpl.text)

		var customerID string
		if len(customers) > 0 {
			customerID = customers[rng.IntN(len(customers))].CustomerID
		}

		id, err := uuid.NewRandomFromReader(ids)
		if err != nil {
			id = uuid.New()
		}
		tickets = append(tickets, TicketRow{
			TicketID:   id.String()[:8],
			CustomerID: customerID,
			Channel:    pick(rng, Channels),
			Text:       strings.TrimSpace(text),
			CreatedAt:  now.Format(timestampForm),
			OrderID:    orderID,
			Category:   tmpl.category,
		})
	}

	return Dataset{Customers: customers, Orders: orders, Tickets: tickets}
}

// WriteDir writes customers.json, orders.json and tickets.csv into dir.
func (d Dataset) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(dir, orderapix.CustomersFile), d.Customers); err != nil {
		return err
	}
	if err := writeJSONFile(filepath.Join(dir, orderapix.OrdersFile), d.Orders); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, TicketsFile))
	if err != nil {
		return err
	}
	if err := WriteTickets(f, d.Tickets); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var ticketHeader = []string{"ticket_id", "customer_id", "channel", "text", "created_at", "order_id"}

func WriteTickets(w io.Writer, rows []TicketRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ticketHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.TicketID, r.CustomerID, r.Channel, r.Text, r.CreatedAt, r.OrderID}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTickets parses tickets.csv by header name, so column order may vary.
func ReadTickets(r io.Reader) ([]TicketRow, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read tickets header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	textIdx, ok := col["text"]
	if !ok {
		return nil, fmt.Errorf("%w: tickets csv has no text column", contractx.ErrValidation)
	}

	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var rows []TicketRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tickets: %w", err)
		}
		if textIdx >= len(rec) {
			continue
		}
		rows = append(rows, TicketRow{
			TicketID:   get(rec, "ticket_id"),
			CustomerID: get(rec, "customer_id"),
			Channel:    get(rec, "channel"),
			Text:       get(rec, "text"),
			CreatedAt:  get(rec, "created_at"),
			OrderID:    get(rec, "order_id"),
		})
	}
	return rows, nil
}

func writeJSONFile(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func pick(rng *rand.Rand, items []string) string {
	return items[rng.IntN(len(items))]
}

type rngReader struct {
	rng *rand.Rand
}

func (r *rngReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.rng.Uint32())
	}
	return len(p), nil
}
