package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSparkline(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   string
	}{
		{"empty", nil, ""},
		{"single point", []float64{5}, "▁"},
		{"flat", []float64{2, 2, 2}, "▁▁▁"},
		{"ramp", []float64{1, 2, 3}, "▁▄█"},
		{"min and max", []float64{0, 100, 50}, "▁█▄"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Sparkline(tc.values))
		})
	}
}

func TestQuoteFormat(t *testing.T) {
	q := Quote{Symbol: "btc", USD: 43250.128, Change24h: -1.234}
	require.Equal(t, "BTC: $43250.13 (-1.23% 24h)", q.Format())

	q = Quote{Symbol: "eth", USD: 2000, Change24h: 0.5}
	require.Equal(t, "ETH: $2000.00 (+0.50% 24h)", q.Format())
}

func TestPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/simple/price", r.URL.Path)
		require.Equal(t, "bitcoin", r.URL.Query().Get("ids"), "btc must map to its asset id")
		w.Write([]byte(`{"bitcoin":{"usd":43250.5,"usd_24h_change":2.1}}`))
	}))
	defer srv.Close()

	q, err := NewClient(srv.URL).Price(context.Background(), "btc")
	require.NoError(t, err)
	require.Equal(t, 43250.5, q.USD)
	require.Equal(t, 2.1, q.Change24h)
	require.Equal(t, "btc", q.Symbol)
}

func TestPriceUnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Price(context.Background(), "nosuchcoin")
	require.Error(t, err)
}

func TestSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/coins/ethereum/market_chart", r.URL.Path)
		require.Equal(t, "7", r.URL.Query().Get("days"))
		w.Write([]byte(`{"prices":[[1700000000000,100.5],[1700086400000,101.25],[1700172800000,99.0]]}`))
	}))
	defer srv.Close()

	series, err := NewClient(srv.URL).Series(context.Background(), "eth", 7)
	require.NoError(t, err)
	require.Equal(t, []float64{100.5, 101.25, 99.0}, series)
}

func TestNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/news", r.URL.Path)
		w.Write([]byte(`{"data":[{"title":"Markets rally","url":"https://example.com/a"}]}`))
	}))
	defer srv.Close()

	headlines, err := NewClient(srv.URL).News(context.Background())
	require.NoError(t, err)
	require.Len(t, headlines, 1)
	require.Equal(t, "Markets rally", headlines[0].Title)
}

func TestLookupHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Price(context.Background(), "btc")
	require.ErrorContains(t, err, "HTTP 429")
}
