package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// fakeServer answers GET, SET and DEL from memory by intercepting commands
// before they reach the network.
type fakeServer struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeClient() (*goredis.Client, *fakeServer) {
	f := &fakeServer{data: map[string]string{}, ttl: map[string]time.Duration{}}
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(f)
	return rdb, f
}

func (f *fakeServer) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (f *fakeServer) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func (f *fakeServer) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		args := cmd.Args()
		switch c := cmd.(type) {
		case *goredis.StringCmd: // GET key
			v, ok := f.data[fmt.Sprint(args[1])]
			if !ok {
				c.SetErr(goredis.Nil)
				return goredis.Nil
			}
			c.SetVal(v)
		case *goredis.StatusCmd: // SET key value [px ms | ex s]
			k := fmt.Sprint(args[1])
			switch v := args[2].(type) {
			case []byte:
				f.data[k] = string(v)
			default:
				f.data[k] = fmt.Sprint(v)
			}
			f.ttl[k] = 0
			if len(args) == 5 {
				n, _ := args[4].(int64)
				unit := time.Second
				if args[3] == "px" {
					unit = time.Millisecond
				}
				f.ttl[k] = time.Duration(n) * unit
			}
			c.SetVal("OK")
		case *goredis.IntCmd: // DEL key...
			var n int64
			for _, a := range args[1:] {
				k := fmt.Sprint(a)
				if _, ok := f.data[k]; ok {
					delete(f.data, k)
					n++
				}
			}
			c.SetVal(n)
		default:
			return next(ctx, cmd)
		}
		return nil
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("err=%v want ErrNilClient", err)
	}
}

func TestGetSetDelWithPrefix(t *testing.T) {
	ctx := context.Background()
	rdb, srv := newFakeClient()
	defer rdb.Close()
	p, err := New(Config{Client: rdb, Prefix: "users:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if b, ok, err := p.Get(ctx, "k"); b != nil || ok || err != nil {
		t.Fatalf("miss: b=%q ok=%v err=%v", b, ok, err)
	}

	if ok, err := p.Set(ctx, "k", []byte("envelope"), 8, 90*time.Second); !ok || err != nil {
		t.Fatalf("Set: ok=%v err=%v", ok, err)
	}
	if _, stored := srv.data["users:k"]; !stored {
		t.Fatalf("key not prefixed: %v", srv.data)
	}
	if srv.ttl["users:k"] != 90*time.Second {
		t.Fatalf("ttl=%v want 90s", srv.ttl["users:k"])
	}
	b, ok, err := p.Get(ctx, "k")
	if !ok || err != nil || !bytes.Equal(b, []byte("envelope")) {
		t.Fatalf("Get=%q ok=%v err=%v", b, ok, err)
	}

	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del of a missing key: %v", err)
	}
	if _, ok, _ := p.Get(ctx, "k"); ok {
		t.Fatalf("key still present after Del")
	}
}

func TestSetWithoutTTL(t *testing.T) {
	ctx := context.Background()
	rdb, srv := newFakeClient()
	defer rdb.Close()
	p, _ := New(Config{Client: rdb})

	if _, err := p.Set(ctx, "k", []byte("v"), 1, -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if srv.ttl["k"] != 0 {
		t.Fatalf("negative ttl should store without expiry, got %v", srv.ttl["k"])
	}
}

func TestCloseOnlyOwnedClient(t *testing.T) {
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	p, err := New(Config{Client: rdb})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	owned, _ := New(Config{Client: goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}), CloseClient: true})
	if err := owned.Close(context.Background()); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := owned.Close(context.Background()); err != nil {
		t.Fatalf("repeated Close should be a no-op: %v", err)
	}
}
