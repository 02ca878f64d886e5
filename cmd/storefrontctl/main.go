// storefrontctl is a CLI tool for exercising the storefront REST API.
// Each command performs a single operation, making it composable for scripts.
// The shopper session is kept in a file between runs so consecutive commands
// share one cart.
//
// Commands:
//
//	storefrontctl products [-query TEXT] [-category NAME] [-sort ORDER] [-in-stock]
//	storefrontctl product -id ID
//	storefrontctl similar -id ID [-limit N]
//	storefrontctl add -product ID
//	storefrontctl set -product ID -qty N
//	storefrontctl remove -product ID
//	storefrontctl cart
//	storefrontctl recommend [-limit N]
//	storefrontctl wishlist
//	storefrontctl toggle -product ID
//	storefrontctl order
//	storefrontctl orders
//	storefrontctl session [-user ID] [-reset]
//
// Examples:
//
//	storefrontctl session -user 42
//	storefrontctl add -product 7
//	storefrontctl cart
//	storefrontctl order
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/model"
	"storefront/internal/session"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	serverURL   string
	sessionFile string
	quiet       bool
	noColor     bool
	verbose     bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "products":
		runProducts(args)
	case "product":
		runProduct(args)
	case "similar":
		runSimilar(args)
	case "add":
		runAdd(args)
	case "set":
		runSet(args)
	case "remove":
		runRemove(args)
	case "cart":
		runCart(args)
	case "recommend":
		runRecommend(args)
	case "wishlist":
		runWishlist(args)
	case "toggle":
		runToggle(args)
	case "order":
		runOrder(args)
	case "orders":
		runOrders(args)
	case "session":
		runSession(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `storefrontctl - storefront API tool

Usage:
  storefrontctl <command> [options]

Commands:
  products   List and filter the catalog
  product    Show one product
  similar    Products similar to one product
  add        Add one unit of a product to the cart
  set        Set a cart line quantity (0 removes it)
  remove     Remove a product from the cart
  cart       Show the cart with totals
  recommend  Cross-sell suggestions for the cart
  wishlist   Show the wishlist
  toggle     Add or remove a wishlist product
  order      Place an order from the cart with a test address
  orders     List the signed-in user's orders
  session    Show, sign in, or reset the saved session

Examples:
  storefrontctl products -query robot -sort price-low
  storefrontctl session -user 42
  storefrontctl add -product 7
  storefrontctl order

Run 'storefrontctl <command> -h' for command-specific options.
`)
}

// newFlagSet registers the flags shared by every command.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&serverURL, "server", envOr("STOREFRONT_URL", "http://localhost:8080"), "Storefront base URL")
	fs.StringVar(&sessionFile, "session-file", defaultSessionFile(), "File holding the shopper session")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - minimal output")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storefrontctl %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// =============================================================================
// SESSION FILE
// =============================================================================

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront-session"
	}
	return filepath.Join(home, ".storefront-session")
}

// loadSession reads the saved Storefront-Session header value. A missing
// file means no session yet.
func loadSession(path string) (session.Identity, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return session.Identity{}, false, nil
	}
	if err != nil {
		return session.Identity{}, false, fmt.Errorf("reading session file: %w", err)
	}
	id, err := session.ParseHeader(strings.TrimSpace(string(data)))
	if err != nil {
		return session.Identity{}, false, fmt.Errorf("session file %s: %w", path, err)
	}
	return id, true, nil
}

func saveSession(path string, id session.Identity) error {
	value, err := session.FormatHeader(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

func runSession(args []string) {
	fs := newFlagSet("session", "session [-user ID] [-reset]")
	var userID string
	var reset bool
	fs.StringVar(&userID, "user", "", "Sign in as this user ID")
	fs.BoolVar(&reset, "reset", false, "Forget the saved session")
	parseFlags(fs, args)

	if reset {
		if err := os.Remove(sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			fatal("Failed to reset session: %v", err)
		}
		printSuccess("Session cleared")
		return
	}

	id, ok, err := loadSession(sessionFile)
	if err != nil {
		fatal("%v", err)
	}
	if !ok {
		id = session.New()
	}
	if userID != "" {
		id.UserID = userID
	}
	if userID != "" || !ok {
		if err := saveSession(sessionFile, id); err != nil {
			fatal("%v", err)
		}
	}

	if quiet {
		fmt.Println(id.SessionID)
		return
	}
	fmt.Printf("  Session: %s%s%s\n", colorCyan, id.SessionID, colorReset)
	if id.Anonymous() {
		fmt.Printf("  User:    %sanonymous%s\n", colorGray, colorReset)
	} else {
		fmt.Printf("  User:    %s%s%s\n", colorCyan, id.UserID, colorReset)
	}
}

// =============================================================================
// CATALOG COMMANDS
// =============================================================================

type listBody[T any] struct {
	Items []T      `json:"items"`
	Count int      `json:"count"`
	Error *apiBody `json:"error,omitempty"`
}

type apiBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func runProducts(args []string) {
	fs := newFlagSet("products", "products [options]")
	var text, category, sortOrder, age string
	var inStock bool
	fs.StringVar(&text, "query", "", "Search text")
	fs.StringVar(&category, "category", "", "Category (comma separated)")
	fs.StringVar(&age, "age", "", "Age group (comma separated)")
	fs.StringVar(&sortOrder, "sort", "", "featured, price-low, price-high, rating or newest")
	fs.BoolVar(&inStock, "in-stock", false, "Only products with stock")
	parseFlags(fs, args)

	q := url.Values{}
	setIf(q, "q", text)
	setIf(q, "category", category)
	setIf(q, "age", age)
	setIf(q, "sort", sortOrder)
	if inStock {
		q.Set("in_stock", "true")
	}

	var body listBody[model.Product]
	if err := doRequest("GET", "/products?"+q.Encode(), nil, &body); err != nil {
		fatal("Failed to list products: %v", err)
	}
	printProducts(body)
}

func runProduct(args []string) {
	fs := newFlagSet("product", "product -id ID")
	var id int64
	fs.Int64Var(&id, "id", 0, "Product ID (required)")
	parseFlags(fs, args)
	requirePositive(fs, id)

	var p model.Product
	if err := doRequest("GET", fmt.Sprintf("/products/%d", id), nil, &p); err != nil {
		fatal("Failed to get product: %v", err)
	}
	if quiet {
		fmt.Println(p.Name)
		return
	}
	printProduct(&p)
	if p.Description != "" {
		fmt.Printf("    %s%s%s\n", colorGray, p.Description, colorReset)
	}
}

func runSimilar(args []string) {
	fs := newFlagSet("similar", "similar -id ID [-limit N]")
	var id int64
	var limit int
	fs.Int64Var(&id, "id", 0, "Product ID (required)")
	fs.IntVar(&limit, "limit", 4, "Maximum results")
	parseFlags(fs, args)
	requirePositive(fs, id)

	var body listBody[model.Product]
	path := fmt.Sprintf("/products/%d/similar?limit=%d", id, limit)
	if err := doRequest("GET", path, nil, &body); err != nil {
		fatal("Failed to get similar products: %v", err)
	}
	printProducts(body)
}

// =============================================================================
// CART COMMANDS
// =============================================================================

type cartBody struct {
	model.CartView
	Error *apiBody `json:"error,omitempty"`
}

func runAdd(args []string) {
	fs := newFlagSet("add", "add -product ID")
	var id int64
	fs.Int64Var(&id, "product", 0, "Product ID (required)")
	parseFlags(fs, args)
	requirePositive(fs, id)

	var resp struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := doRequest("POST", "/cart/items", map[string]int64{"product_id": id}, &resp); err != nil {
		fatal("Failed to add to cart: %v", err)
	}
	if quiet {
		fmt.Println(resp.Quantity)
		return
	}
	printSuccess("Added product %d (quantity now %d)", resp.ProductID, resp.Quantity)
}

func runSet(args []string) {
	fs := newFlagSet("set", "set -product ID -qty N")
	var id int64
	var qty int
	fs.Int64Var(&id, "product", 0, "Product ID (required)")
	fs.IntVar(&qty, "qty", -1, "Quantity (required, 0 removes)")
	parseFlags(fs, args)
	requirePositive(fs, id)
	if qty < 0 {
		fs.Usage()
		os.Exit(1)
	}

	path := fmt.Sprintf("/cart/items/%d", id)
	if err := doRequest("PUT", path, map[string]int{"quantity": qty}, nil); err != nil {
		fatal("Failed to set quantity: %v", err)
	}
	printSuccess("Product %d quantity set to %d", id, qty)
}

func runRemove(args []string) {
	fs := newFlagSet("remove", "remove -product ID")
	var id int64
	fs.Int64Var(&id, "product", 0, "Product ID (required)")
	parseFlags(fs, args)
	requirePositive(fs, id)

	if err := doRequest("DELETE", fmt.Sprintf("/cart/items/%d", id), nil, nil); err != nil {
		fatal("Failed to remove from cart: %v", err)
	}
	printSuccess("Removed product %d", id)
}

func runCart(args []string) {
	fs := newFlagSet("cart", "cart")
	parseFlags(fs, args)

	var cart cartBody
	if err := doRequest("GET", "/cart", nil, &cart); err != nil {
		fatal("Failed to get cart: %v", err)
	}
	if cart.Error != nil {
		printWarning("%s: %s", cart.Error.Code, cart.Error.Message)
	}
	if quiet {
		fmt.Println(model.FormatAmount(cart.Totals.GrandTotal))
		return
	}
	if len(cart.Lines) == 0 {
		printInfo("Cart is empty")
	}
	for _, line := range cart.Lines {
		fmt.Printf("  %3d × %-32s %s\n", line.Quantity, line.Product.Name, formatAmount(line.LineTotal))
	}
	fmt.Printf("  %sSubtotal:%s %s\n", colorBold, colorReset, formatAmount(cart.Totals.Subtotal))
	fmt.Printf("  %sShipping:%s %s\n", colorBold, colorReset, formatAmount(cart.Totals.Shipping))
	fmt.Printf("  %sTax:%s      %s\n", colorBold, colorReset, formatAmount(cart.Totals.Tax))
	fmt.Printf("  %sTotal:%s    %s%s%s\n", colorBold, colorReset, colorGreen, formatAmount(cart.Totals.GrandTotal), colorReset)
}

func runRecommend(args []string) {
	fs := newFlagSet("recommend", "recommend [-limit N]")
	var limit int
	fs.IntVar(&limit, "limit", 4, "Maximum results")
	parseFlags(fs, args)

	var body listBody[model.Product]
	if err := doRequest("GET", fmt.Sprintf("/cart/recommendations?limit=%d", limit), nil, &body); err != nil {
		fatal("Failed to get recommendations: %v", err)
	}
	printProducts(body)
}

// =============================================================================
// WISHLIST COMMANDS
// =============================================================================

func runWishlist(args []string) {
	fs := newFlagSet("wishlist", "wishlist")
	parseFlags(fs, args)

	var body listBody[model.Product]
	if err := doRequest("GET", "/wishlist", nil, &body); err != nil {
		fatal("Failed to get wishlist: %v", err)
	}
	printProducts(body)
}

func runToggle(args []string) {
	fs := newFlagSet("toggle", "toggle -product ID")
	var id int64
	fs.Int64Var(&id, "product", 0, "Product ID (required)")
	parseFlags(fs, args)
	requirePositive(fs, id)

	var resp struct {
		Action string `json:"action"`
	}
	if err := doRequest("POST", fmt.Sprintf("/wishlist/%d/toggle", id), nil, &resp); err != nil {
		fatal("Failed to toggle wishlist: %v", err)
	}
	if quiet {
		fmt.Println(resp.Action)
		return
	}
	printSuccess("Product %d %s", id, resp.Action)
}

// =============================================================================
// ORDER COMMANDS
// =============================================================================

func runOrder(args []string) {
	fs := newFlagSet("order", "order [-email ADDRESS]")
	var email string
	fs.StringVar(&email, "email", "test@example.com", "Buyer email")
	parseFlags(fs, args)

	reqBody := map[string]interface{}{
		"shipping_address": model.PostalAddress{
			FirstName:  "Test",
			LastName:   "Buyer",
			Email:      email,
			Phone:      "+16135551234",
			Street:     "150 Elgin Street",
			City:       "Ottawa",
			State:      "ON",
			PostalCode: "K2P 1L4",
		},
	}

	var placed model.Order
	if err := doRequest("POST", "/orders", reqBody, &placed); err != nil {
		fatal("Failed to place order: %v", err)
	}
	if quiet {
		fmt.Println(placed.Number)
		return
	}
	printSuccess("Order placed")
	fmt.Printf("  Number: %s%s%s\n", colorCyan, placed.Number, colorReset)
	fmt.Printf("  Total:  %s%s%s\n", colorGreen, formatAmount(placed.Totals.GrandTotal), colorReset)
	fmt.Printf("  Estimated delivery: %s\n", placed.EstimatedDelivery.Format("Mon Jan 2"))
}

func runOrders(args []string) {
	fs := newFlagSet("orders", "orders")
	parseFlags(fs, args)

	var body listBody[model.Order]
	if err := doRequest("GET", "/orders", nil, &body); err != nil {
		fatal("Failed to list orders: %v", err)
	}
	if body.Error != nil {
		printWarning("%s: %s", body.Error.Code, body.Error.Message)
	}
	for _, o := range body.Items {
		if quiet {
			fmt.Println(o.Number)
			continue
		}
		fmt.Printf("  %s%-18s%s %-10s %s  %s\n", colorCyan, o.Number, colorReset,
			o.Status, o.OrderDate.Format("2006-01-02"), formatAmount(o.Totals.GrandTotal))
	}
	if !quiet && len(body.Items) == 0 {
		printInfo("No orders")
	}
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

// doRequest sends a request with the saved session and decodes the JSON
// response into out, which may be nil. A session minted by the server is
// saved for the next command.
func doRequest(method, path string, body interface{}, out interface{}) error {
	fullURL := strings.TrimSuffix(serverURL, "/") + path

	var bodyReader io.Reader
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	id, haveSession, err := loadSession(sessionFile)
	if err != nil {
		return err
	}
	if haveSession {
		value, err := session.FormatHeader(id)
		if err != nil {
			return err
		}
		req.Header.Set(session.HeaderName, value)
	}

	if verbose {
		printRequest(method, path, bodyBytes)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	duration := time.Since(start)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if verbose {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if !haveSession {
		if err := adoptSession(resp.Header.Get(session.HeaderName)); err != nil {
			printWarning("%v", err)
		}
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error apiBody `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error.Code != "" {
			return fmt.Errorf("HTTP %d %s: %s", resp.StatusCode, envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// adoptSession saves the session the server minted for this client.
func adoptSession(header string) error {
	if header == "" {
		return nil
	}
	id, err := session.ParseHeader(header)
	if err != nil {
		return fmt.Errorf("server sent an invalid session: %w", err)
	}
	if err := saveSession(sessionFile, id); err != nil {
		return err
	}
	printInfo("Started session %s", id.SessionID)
	return nil
}

func setIf(q url.Values, key, val string) {
	if val != "" {
		q.Set(key, val)
	}
}

func requirePositive(fs *flag.FlagSet, id int64) {
	if id <= 0 {
		fs.Usage()
		os.Exit(1)
	}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	if len(data) == 0 {
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(pretty.String())
}

func printProducts(body listBody[model.Product]) {
	if body.Error != nil {
		printWarning("%s: %s", body.Error.Code, body.Error.Message)
	}
	for i := range body.Items {
		if quiet {
			fmt.Println(body.Items[i].ID)
			continue
		}
		printProduct(&body.Items[i])
	}
	if !quiet {
		printInfo("%d products", body.Count)
	}
}

func printProduct(p *model.Product) {
	price := formatAmount(p.Price)
	if p.OnSale() {
		price = fmt.Sprintf("%s%s%s (was %s)", colorGreen, formatAmount(*p.SalePrice), colorReset, price)
	}
	stock := strconv.Itoa(p.StockQuantity) + " in stock"
	if p.StockQuantity == 0 {
		stock = colorRed + "out of stock" + colorReset
	}
	fmt.Printf("  %s%4d%s  %-32s %-12s %s  %s\n", colorCyan, p.ID, colorReset, p.Name, p.Category, price, stock)
}

func formatAmount(d decimal.Decimal) string {
	return "$" + model.FormatAmount(d)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
