package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/merlinlabs/merlin-api/internal/auth"
)

const (
	numOrders     = 25
	serverAddress = "http://localhost:8080"
)

var (
	tokens   = []string{"WETH", "USDC", "DAI", "WBTC"}
	sides    = []string{"buy", "sell"}
	triggers = []string{"market_cap", "price"}
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes min, max, mean and median durations for the route
func (rs *routeStats) calculate() (min, max, mean, median time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	return
}

// simulationClient handles HTTP communication with the limit-order API
type simulationClient struct {
	baseURL     string
	authToken   string
	sweepSecret string
	client      *http.Client
	stats       map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	sc := &simulationClient{
		baseURL:     serverAddress,
		sweepSecret: os.Getenv("SWEEP_SECRET"),
		client:      &http.Client{Timeout: 30 * time.Second},
		stats: map[string]*routeStats{
			"auth":   {name: "Authentication"},
			"wallet": {name: "Create Wallet"},
			"create": {name: "Create Order"},
			"list":   {name: "List Orders"},
			"cancel": {name: "Cancel Order"},
			"sweep":  {name: "Trigger Sweep"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// call sends a request, records its latency under the given stats key, and
// unmarshals the response envelope's data field into out when non-nil.
func (sc *simulationClient) call(statsKey, method, path string, payload interface{}, bearer string, out interface{}) error {
	start := time.Now()
	stats := sc.stats[statsKey]
	defer func() {
		stats.addDuration(time.Since(start))
	}()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		stats.failures++
		return err
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		stats.failures++
		return fmt.Errorf("malformed response from %s: %w", path, err)
	}
	if !envelope.Success {
		stats.failures++
		if envelope.Error != nil {
			return fmt.Errorf("%s: %s (%s)", path, envelope.Error.Message, envelope.Error.Code)
		}
		return fmt.Errorf("%s: request failed with status %d", path, resp.StatusCode)
	}

	if out != nil {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	var result struct {
		Token string `json:"jwt_token"`
	}
	err := sc.call("auth", http.MethodPost, "/api/v1/auth/token", map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}, "", &result)
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

func (sc *simulationClient) createWallet(telegramID string) (string, error) {
	var result struct {
		Address string `json:"address"`
	}
	err := sc.call("wallet", http.MethodPost, "/api/v1/wallets", map[string]string{
		"telegram_id": telegramID,
		"username":    "sim-user-" + telegramID,
	}, sc.authToken, &result)
	if err != nil {
		return "", err
	}
	return result.Address, nil
}

func (sc *simulationClient) createOrder(wallet, telegramID string) (string, error) {
	amountKind := "fixed"
	amount := fmt.Sprintf("%.3f", rand.Float64()+0.05)
	if rand.Intn(3) == 0 {
		amountKind = "percentage"
		amount = fmt.Sprintf("%d", rand.Intn(100)+1)
	}

	var result struct {
		OrderID string `json:"order_id"`
	}
	err := sc.call("create", http.MethodPost, "/api/v1/orders", map[string]string{
		"wallet_address": wallet,
		"telegram_id":    telegramID,
		"token":          tokens[rand.Intn(len(tokens))],
		"side":           sides[rand.Intn(len(sides))],
		"trigger_kind":   triggers[rand.Intn(len(triggers))],
		"trigger_value":  fmt.Sprintf("%d", rand.Intn(5000)+10),
		"amount":         amount,
		"amount_kind":    amountKind,
	}, sc.authToken, &result)
	if err != nil {
		return "", err
	}
	return result.OrderID, nil
}

func (sc *simulationClient) listOrders(wallet string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	err := sc.call("list", http.MethodGet, "/api/v1/orders?wallet_address="+wallet, nil, sc.authToken, &result)
	return result.Count, err
}

func (sc *simulationClient) cancelOrder(orderID, wallet string) error {
	return sc.call("cancel", http.MethodPost, "/api/v1/orders/"+orderID+"/cancel", map[string]string{
		"wallet_address": wallet,
	}, sc.authToken, nil)
}

func (sc *simulationClient) triggerSweep() (checked, executed, failed int, err error) {
	var result struct {
		Checked  int `json:"checked"`
		Executed int `json:"executed"`
		Failed   int `json:"failed"`
	}
	err = sc.call("sweep", http.MethodPost, "/api/v1/internal/sweep", nil, sc.sweepSecret, &result)
	return result.Checked, result.Executed, result.Failed, err
}

// main runs one full pass over the API: wallet creation, a batch of orders,
// a listing, a sweep, and a cancellation, then prints latency stats.
func main() {
	sc, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize simulation client")
	}

	telegramID := fmt.Sprintf("%d", rand.Int63n(1_000_000_000))
	wallet, err := sc.createWallet(telegramID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create custodial wallet")
	}
	log.Info().Str("address", wallet).Msg("custodial wallet created")

	orderIDs := make([]string, 0, numOrders)
	for i := 0; i < numOrders; i++ {
		orderID, err := sc.createOrder(wallet, telegramID)
		if err != nil {
			log.Warn().Err(err).Msg("order creation failed")
			continue
		}
		orderIDs = append(orderIDs, orderID)
	}
	log.Info().Int("created", len(orderIDs)).Msg("orders created")

	count, err := sc.listOrders(wallet)
	if err != nil {
		log.Warn().Err(err).Msg("listing failed")
	} else {
		log.Info().Int("count", count).Msg("orders listed")
	}

	checked, executed, failed, err := sc.triggerSweep()
	if err != nil {
		log.Warn().Err(err).Msg("sweep trigger failed")
	} else {
		log.Info().
			Int("checked", checked).
			Int("executed", executed).
			Int("failed", failed).
			Msg("sweep complete")
	}

	if len(orderIDs) > 0 {
		if err := sc.cancelOrder(orderIDs[0], wallet); err != nil {
			log.Warn().Err(err).Str("order_id", orderIDs[0]).Msg("cancel failed")
		} else {
			log.Info().Str("order_id", orderIDs[0]).Msg("order cancelled")
		}
	}

	printStats(sc)
}

func printStats(sc *simulationClient) {
	fmt.Println("\nRoute performance:")
	for _, key := range []string{"auth", "wallet", "create", "list", "sweep", "cancel"} {
		stats := sc.stats[key]
		if stats.totalCalls == 0 {
			continue
		}
		min, max, mean, median := stats.calculate()
		fmt.Printf("  %-16s calls=%-4d failures=%-3d min=%s max=%s mean=%s median=%s\n",
			stats.name, stats.totalCalls, stats.failures, min, max, mean, median)
	}
}
