package openfoodfacts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"compras/internal/cache"
	"compras/internal/core"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v0/product/7891000100103.json":
			w.Write([]byte(`{"status":1,"product":{"product_name":" Leite Ninho ","brands":"Nestlé ","categories":"Laticínios"}}`))
		case "/api/v0/product/0000.json":
			w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
		case "/api/v0/product/500.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`not json`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		info, found, err := c.Lookup(ctx, "7891000100103")
		if err != nil || !found {
			t.Fatalf("Lookup() = %+v, %v, %v", info, found, err)
		}
		want := core.ProductInfo{Name: "Leite Ninho", Brand: "Nestlé", Category: "Laticínios"}
		if info != want {
			t.Fatalf("Lookup() = %+v, want %+v", info, want)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		_, found, err := c.Lookup(ctx, "0000")
		if err != nil || found {
			t.Fatalf("expected not found without error, got found=%v err=%v", found, err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		if _, _, err := c.Lookup(ctx, "500"); err == nil {
			t.Fatal("expected error for non-200 status")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		if _, _, err := c.Lookup(ctx, "123"); err == nil {
			t.Fatal("expected decode error")
		}
	})

	t.Run("empty barcode", func(t *testing.T) {
		if _, _, err := c.Lookup(ctx, "  "); !errors.Is(err, core.ErrEmptyBarcode) {
			t.Fatalf("expected ErrEmptyBarcode, got %v", err)
		}
	})
}

func TestLookupTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond)
	if _, _, err := c.Lookup(context.Background(), "1"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRegister(t *testing.T) {
	var gotForm atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cgi/product_jqm2.pl" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		gotForm.Store(r.PostForm)
		switch r.PostForm.Get("code") {
		case "111":
			w.Write([]byte(`{"status":1,"status_verbose":"fields saved"}`))
		case "222":
			w.Write([]byte(`{"status":0,"status_verbose":"no code or invalid code"}`))
		case "333":
			w.Write([]byte(`{"status":0}`))
		default:
			w.Write([]byte(`<html>maintenance</html>`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, WithCredentials("user", "secret"))
	ctx := context.Background()
	reg := func(code string) core.ProductRegistration {
		return core.ProductRegistration{Barcode: code, Name: "Café", Brand: "Pilão", Category: "Alimento"}
	}

	t.Run("success", func(t *testing.T) {
		res := c.Register(ctx, reg("111"))
		if !res.OK {
			t.Fatalf("expected success, got %+v", res)
		}
		form := gotForm.Load().(url.Values)
		if form.Get("user_id") != "user" || form.Get("product_name") != "Café" || form.Get("lc") != "pt" {
			t.Fatalf("unexpected form: %v", form)
		}
	})

	t.Run("service rejects", func(t *testing.T) {
		res := c.Register(ctx, reg("222"))
		if res.OK || !strings.Contains(res.Message, "no code or invalid code") {
			t.Fatalf("expected failure with status_verbose, got %+v", res)
		}
	})

	t.Run("service rejects without reason", func(t *testing.T) {
		res := c.Register(ctx, reg("333"))
		if res.OK || !strings.Contains(res.Message, msgUnknownError) {
			t.Fatalf("expected generic failure, got %+v", res)
		}
	})

	t.Run("non json response", func(t *testing.T) {
		res := c.Register(ctx, reg("444"))
		if res.OK || !strings.Contains(res.Message, "maintenance") {
			t.Fatalf("expected failure carrying body, got %+v", res)
		}
	})
}

func TestRegisterIncompleteMakesNoRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res := c.Register(context.Background(), core.ProductRegistration{Barcode: "1", Name: "x", Brand: ""})
	if res.OK || res.Message != msgIncomplete {
		t.Fatalf("expected incomplete failure, got %+v", res)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no HTTP call, got %d", calls)
	}
}

type countingLookup struct {
	calls int
	info  core.ProductInfo
	found bool
	err   error
}

func (c *countingLookup) Lookup(context.Context, string) (core.ProductInfo, bool, error) {
	c.calls++
	return c.info, c.found, c.err
}

func TestCachedLookup(t *testing.T) {
	ctx := context.Background()
	newCache := func() *cache.LRUCache[CacheEntry] { return cache.NewLRUCache[CacheEntry](10, time.Hour) }

	t.Run("caches found products", func(t *testing.T) {
		next := &countingLookup{info: core.ProductInfo{Name: "Arroz"}, found: true}
		l := NewCachedLookup(next, newCache(), time.Minute)
		for i := 0; i < 3; i++ {
			info, found, err := l.Lookup(ctx, " 789 ")
			if err != nil || !found || info.Name != "Arroz" {
				t.Fatalf("Lookup() = %+v, %v, %v", info, found, err)
			}
		}
		if next.calls != 1 {
			t.Fatalf("expected 1 upstream call, got %d", next.calls)
		}
	})

	t.Run("remembers unknown barcodes", func(t *testing.T) {
		next := &countingLookup{found: false}
		l := NewCachedLookup(next, newCache(), time.Minute)
		for i := 0; i < 3; i++ {
			if _, found, err := l.Lookup(ctx, "000"); err != nil || found {
				t.Fatalf("Lookup() = %v, %v; want not found", found, err)
			}
		}
		if next.calls != 1 {
			t.Fatalf("expected 1 upstream call, got %d", next.calls)
		}
	})

	t.Run("forget after registration", func(t *testing.T) {
		next := &countingLookup{found: false}
		l := NewCachedLookup(next, newCache(), time.Minute)
		l.Lookup(ctx, "000")

		next.found = true
		next.info = core.ProductInfo{Name: "Feijão"}
		l.Forget(" 000 ")
		info, found, err := l.Lookup(ctx, "000")
		if err != nil || !found || info.Name != "Feijão" {
			t.Fatalf("Lookup() after Forget = %+v, %v, %v", info, found, err)
		}
	})

	t.Run("zero miss ttl and errors reach upstream", func(t *testing.T) {
		next := &countingLookup{err: errors.New("timeout")}
		l := NewCachedLookup(next, newCache(), 0)
		l.Lookup(ctx, "1")
		next.err = nil
		l.Lookup(ctx, "1")
		l.Lookup(ctx, "1")
		if next.calls != 3 {
			t.Fatalf("expected every lookup to reach upstream, got %d calls", next.calls)
		}
	})
}
