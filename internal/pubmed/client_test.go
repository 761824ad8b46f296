package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/medassist/internal/facade"
)

// fakeEUtils serves esearch with ids and esummary per id; ids in failing return 500
type fakeEUtils struct {
	ids          []string
	failing      map[string]bool
	searchBody   string
	okStatus     int
	searchCalls  int32
	summaryCalls int32
	inFlight     int32
	maxInFlight  int32
}

func (f *fakeEUtils) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	writeOK := func() {
		if f.okStatus != 0 {
			w.WriteHeader(f.okStatus)
		}
	}

	switch {
	case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
		atomic.AddInt32(&f.searchCalls, 1)
		writeOK()
		if f.searchBody != "" {
			_, _ = w.Write([]byte(f.searchBody))
			return
		}
		quoted := make([]string, len(f.ids))
		for i, id := range f.ids {
			quoted[i] = `"` + id + `"`
		}
		fmt.Fprintf(w, `{"esearchresult":{"count":"%d","idlist":[%s]}}`, 100, strings.Join(quoted, ","))

	case strings.HasSuffix(r.URL.Path, "/esummary.fcgi"):
		atomic.AddInt32(&f.summaryCalls, 1)
		n := atomic.AddInt32(&f.inFlight, 1)
		defer atomic.AddInt32(&f.inFlight, -1)
		for {
			prev := atomic.LoadInt32(&f.maxInFlight)
			if n <= prev || atomic.CompareAndSwapInt32(&f.maxInFlight, prev, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)

		id := q.Get("id")
		if f.failing[id] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeOK()
		fmt.Fprintf(w, `{"result":{"uids":["%[1]s"],"%[1]s":{"uid":"%[1]s","title":"Paper %[1]s","source":"J Med","pubdate":"2024","authors":[{"name":"Kim J"}]}}}`, id)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T, fake *fakeEUtils) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/entrez/eutils/", "ncbi-key", 5*time.Second)
}

func ids(papers []facade.Paper) []string {
	out := make([]string, 0, len(papers))
	for _, p := range papers {
		out = append(out, p.ID)
	}
	return out
}

func TestExecute_PreservesOrderAndOmitsFailures(t *testing.T) {
	fake := &fakeEUtils{ids: []string{"1", "2", "3"}, failing: map[string]bool{"2": true}}
	client := newClient(t, fake)

	result, err := client.Execute(context.Background(), facade.BuildRequest("metformin", facade.IntentLiteratureByTerm))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, ids(result.Papers))
	assert.Equal(t, "Paper 1", result.Papers[0].Title)
	assert.Equal(t, []string{"Kim J"}, result.Papers[0].Authors)
	assert.Equal(t, 100, result.Total)
	assert.Equal(t, "metformin", result.Query)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.searchCalls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.summaryCalls))
}

func TestExecute_AllSummariesFailed(t *testing.T) {
	fake := &fakeEUtils{ids: []string{"1", "2"}, failing: map[string]bool{"1": true, "2": true}}
	client := newClient(t, fake)

	result, err := client.Execute(context.Background(), facade.BuildRequest("metformin", facade.IntentLiteratureByTerm))
	assert.Nil(t, result)
	var fe *facade.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, facade.ErrorKindUpstreamUnavailable, fe.Kind)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.summaryCalls))
}

func TestExecute_AcceptsAnySuccessStatus(t *testing.T) {
	fake := &fakeEUtils{ids: []string{"1"}, okStatus: http.StatusNonAuthoritativeInfo}
	client := newClient(t, fake)

	result, err := client.Execute(context.Background(), facade.BuildRequest("aspirin", facade.IntentLiteratureByTerm))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(result.Papers))
}

func TestExecute_BoundedConcurrency(t *testing.T) {
	fake := &fakeEUtils{ids: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}}
	client := newClient(t, fake)

	result, err := client.Execute(context.Background(), facade.BuildRequest("aspirin", facade.IntentLiteratureByTerm))
	require.NoError(t, err)

	assert.Equal(t, fake.ids, ids(result.Papers))
	assert.LessOrEqual(t, atomic.LoadInt32(&fake.maxInFlight), int32(defaultConcurrency))
}

func TestExecute_SearchErrors(t *testing.T) {
	t.Run("missing esearchresult", func(t *testing.T) {
		fake := &fakeEUtils{searchBody: `{"header":{}}`}
		client := newClient(t, fake)

		_, err := client.Execute(context.Background(), facade.BuildRequest("x", facade.IntentLiteratureByTerm))
		assert.Equal(t, facade.ErrorKindMalformedResponse, facade.KindOf(err))
		assert.Equal(t, int32(0), atomic.LoadInt32(&fake.summaryCalls))
	})

	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()
		client := NewClient(srv.URL+"/", "k", time.Second)

		_, err := client.Execute(context.Background(), facade.BuildRequest("x", facade.IntentLiteratureByTerm))
		var fe *facade.Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, facade.ErrorKindUpstreamUnavailable, fe.Kind)
		assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	})
}

func TestExecute_NoIDs(t *testing.T) {
	fake := &fakeEUtils{}
	client := newClient(t, fake)

	result, err := client.Execute(context.Background(), facade.BuildRequest("xyzzy", facade.IntentLiteratureByTerm))
	require.NoError(t, err)
	assert.Empty(t, result.Papers)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.summaryCalls))
}

func TestSearch_SendsParameters(t *testing.T) {
	queries := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries <- r.URL.RawQuery
		_, _ = w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "ncbi-key", time.Second)
	_, err := client.Execute(context.Background(), facade.BuildRequest("sleep apnea", facade.IntentLiteratureByTerm))
	require.NoError(t, err)

	query := <-queries
	assert.Contains(t, query, "db=pubmed")
	assert.Contains(t, query, "term=sleep+apnea")
	assert.Contains(t, query, "retmax=10")
	assert.Contains(t, query, "retmode=json")
	assert.Contains(t, query, "api_key=ncbi-key")
}
