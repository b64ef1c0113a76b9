package orderapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/Chative-Support-Ticket-Workflow/agent/contract"
)

const (
	CustomersFile = "customers.json"
	OrdersFile    = "orders.json"
)

type ServerConfig struct {
	Addr    string `envconfig:"ADDR" split_words:"true" default:":8001"`
	DataDir string `envconfig:"DATA_DIR" split_words:"true" default:"data"`
}

type Customer struct {
	CustomerID string `json:"customer_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Loyalty    string `json:"loyalty,omitempty"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Catalog holds customers and orders in file order, indexed by id.
type Catalog struct {
	mu        sync.RWMutex
	dataDir   string
	customers []Customer
	orders    []contractx.OrderRecord
	custByID  map[string]int
	orderByID map[string]int
}

func NewCatalog(dataDir string) *Catalog {
	return &Catalog{dataDir: dataDir}
}

// Load replaces the catalog contents with the JSON files in the data dir.
func (c *Catalog) Load() error {
	var customers []Customer
	if err := readJSON(filepath.Join(c.dataDir, CustomersFile), &customers); err != nil {
		return err
	}
	var orders []contractx.OrderRecord
	if err := readJSON(filepath.Join(c.dataDir, OrdersFile), &orders); err != nil {
		return err
	}
	c.Replace(customers, orders)
	return nil
}

func (c *Catalog) Replace(customers []Customer, orders []contractx.OrderRecord) {
	custByID := make(map[string]int, len(customers))
	for i, cu := range customers {
		custByID[cu.CustomerID] = i
	}
	orderByID := make(map[string]int, len(orders))
	for i, o := range orders {
		orderByID[o.OrderID] = i
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.customers = append([]Customer(nil), customers...)
	c.orders = append([]contractx.OrderRecord(nil), orders...)
	c.custByID = custByID
	c.orderByID = orderByID
}

func (c *Catalog) Counts() (customers int, orders int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.customers), len(c.orders)
}

func (c *Catalog) Customer(id string) (Customer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.custByID[id]
	if !ok {
		return Customer{}, false
	}
	return c.customers[i], true
}

func (c *Catalog) Order(id string) (contractx.OrderRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.orderByID[id]
	if !ok {
		return contractx.OrderRecord{}, false
	}
	return c.orders[i], true
}

// SearchCustomers matches q case-insensitively against name or email.
func (c *Catalog) SearchCustomers(q string) []Customer {
	q = strings.ToLower(strings.TrimSpace(q))

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Customer, 0, len(c.customers))
	for _, cu := range c.customers {
		if q == "" || strings.Contains(strings.ToLower(cu.Name), q) || strings.Contains(strings.ToLower(cu.Email), q) {
			out = append(out, cu)
		}
	}
	return out
}

type OrderFilter struct {
	CustomerID string
	Status     string
	Query      string
}

func (c *Catalog) SearchOrders(f OrderFilter) []contractx.OrderRecord {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]contractx.OrderRecord, 0, len(c.orders))
	for _, o := range c.orders {
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		if f.Status != "" && !strings.EqualFold(o.Status, f.Status) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(o.Product), q) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Server is the mock order and customer API.
type Server struct {
	catalog *Catalog
	echo    *echo.Echo
}

func NewServer(catalog *Catalog) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	s := &Server{catalog: catalog, echo: e}
	e.GET("/health", s.handleHealth)
	e.GET("/customers", s.handleListCustomers)
	e.GET("/customers/:id", s.handleGetCustomer)
	e.GET("/orders", s.handleListOrders)
	e.GET("/orders/:id", s.handleGetOrder)
	e.POST("/__reload", s.handleReload)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("mock order api listening")
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	customers, orders := s.catalog.Counts()
	return c.JSON(http.StatusOK, map[string]any{"ok": true, "orders": orders, "customers": customers})
}

func (s *Server) handleListCustomers(c echo.Context) error {
	return c.JSON(http.StatusOK, s.catalog.SearchCustomers(c.QueryParam("q")))
}

func (s *Server) handleGetCustomer(c echo.Context) error {
	customer, ok := s.catalog.Customer(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Detail: "Customer not found"})
	}
	return c.JSON(http.StatusOK, customer)
}

func (s *Server) handleListOrders(c echo.Context) error {
	return c.JSON(http.StatusOK, s.catalog.SearchOrders(OrderFilter{
		CustomerID: c.QueryParam("customer_id"),
		Status:     c.QueryParam("status"),
		Query:      c.QueryParam("q"),
	}))
}

func (s *Server) handleGetOrder(c echo.Context) error {
	order, ok := s.catalog.Order(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Detail: "Order not found"})
	}
	return c.JSON(http.StatusOK, order)
}

func (s *Server) handleReload(c echo.Context) error {
	if err := s.catalog.Load(); err != nil {
		log.Error().Err(err).Msg("reload order data")
		return c.JSON(http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}
	customers, orders := s.catalog.Counts()
	log.Info().Int("customers", customers).Int("orders", orders).Msg("order data reloaded")
	return c.JSON(http.StatusOK, map[string]any{"reloaded": true, "orders": orders, "customers": customers})
}

func readJSON(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("missing file: %s", path)
		}
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
