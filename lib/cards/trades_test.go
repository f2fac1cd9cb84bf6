package cards

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nstools/lib/nsapi"

	"github.com/stretchr/testify/require"
)

func TestAuditTrades(t *testing.T) {
	since := time.Unix(1700000000, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "card trades", q.Get("q"))
		require.Equal(t, "1700000000", q.Get("sincetime"))
		switch q.Get("cardid") + "/" + q.Get("season") {
		case "1/2":
			w.Write([]byte(`<CARD><TRADES>
<TRADE><BUYER>outsider</BUYER><SELLER>Member One</SELLER><PRICE>10.00</PRICE><TIMESTAMP>1700000500</TIMESTAMP></TRADE>
<TRADE><BUYER>outsider</BUYER><SELLER>stranger</SELLER><PRICE>9.00</PRICE><TIMESTAMP>1700000400</TIMESTAMP></TRADE>
</TRADES></CARD>`))
		case "7/3":
			w.Write([]byte(`<CARD><TRADES>
<TRADE><BUYER>member_two</BUYER><SELLER>stranger</SELLER><PRICE></PRICE><TIMESTAMP>1700000100</TIMESTAMP></TRADE>
</TRADES></CARD>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	client, err := nsapi.NewClient(nsapi.Options{UserAgent: "nstools tests", BaseURL: srv.URL})
	require.NoError(t, err)

	list, err := ParseRarityList(strings.NewReader(`[
		{"cardid": "1", "season": "2", "name": "Testlandia"},
		{"cardid": "7", "season": "3", "name": "Maxtopia"}
	]`))
	require.NoError(t, err)

	members := nsapi.NewNameSet("member_one", "Member Two")
	trades, err := AuditTrades(context.Background(), client, list, members, since)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	require.Equal(t, "Testlandia", trades[0].Card.Name)
	require.Equal(t, "Member One", trades[0].Seller)
	require.Equal(t, "member_two", trades[1].Buyer)

	var out bytes.Buffer
	require.NoError(t, WriteTradeAudit(&out, trades))
	require.Equal(t,
		"Testlandia ("+srv.URL+"/page=deck/card=1/season=2/trades_history=1): Sold from Member One to outsider.\n"+
			"Maxtopia ("+srv.URL+"/page=deck/card=7/season=3/trades_history=1): Sold from stranger to member_two.\n",
		out.String())

	_, err = AuditTrades(context.Background(), client, []RarityCard{{CardID: "x", Season: "1"}}, members, since)
	require.Error(t, err)
}

func TestPreviousMonth(t *testing.T) {
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), PreviousMonth(time.Date(2024, 5, 17, 13, 0, 0, 0, time.UTC)))
	require.Equal(t, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), PreviousMonth(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
	// still december in utc
	require.Equal(t, time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC), PreviousMonth(time.Date(2024, 1, 1, 0, 30, 0, 0, time.FixedZone("cet", 3600))))
}
