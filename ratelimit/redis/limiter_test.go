package redislimiter

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiter_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	l := New(rdb, map[string]Limit{"email": {Limit: 2, Window: time.Hour}})
	for i := 0; i < 2; i++ {
		if ok, err := l.AllowNamed("email", "u1"); err != nil || !ok {
			t.Fatalf("send %d should be allowed: %v %v", i, ok, err)
		}
	}
	if ok, err := l.AllowNamed("email", "u1"); err != nil || ok {
		t.Fatalf("third send should be denied: %v %v", ok, err)
	}
	if n, _ := rdb.ZCard(t.Context(), "duekit:rl:email:u1").Result(); n != 2 {
		t.Fatalf("denied attempt must not be recorded, have %d members", n)
	}
	if ok, _ := l.AllowNamed("email", "u2"); !ok {
		t.Fatalf("other recipient should be allowed")
	}
}

func TestLimiter_NilClient(t *testing.T) {
	l := New(nil, nil)
	if ok, err := l.AllowNamed("email", "u1"); !ok || err != nil {
		t.Fatalf("nil client allows everything")
	}
}
