package steamapi

import (
	"math"
	"sync"
	"time"
)

// maxBackoff caps the exponential backoff at 10 minutes.
const maxBackoff = 600 * time.Second

// RateLimiter controla retries de chamadas de API com backoff exponencial,
// por chave lógica (uma partida, uma conta), para que falhas de um recurso
// não atrasem consultas não relacionadas.
type RateLimiter struct {
	mu       sync.Mutex
	failures map[string]int
	retryAt  map[string]time.Time
	now      func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		failures: make(map[string]int),
		retryAt:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// ShouldRetry reporta se a chave está liberada para uma nova chamada.
func (r *RateLimiter) ShouldRetry(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	retryAt, ok := r.retryAt[key]
	if !ok {
		return true
	}
	return r.now().After(retryAt)
}

// RecordFailure registra uma falha e devolve o backoff aplicado.
// Backoff: min(2^failures, 600) segundos.
func (r *RateLimiter) RecordFailure(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[key]++
	// Limita o expoente antes de calcular: 2^failures estoura int64 a partir
	// de ~34 falhas e produziria um backoff negativo.
	exp := r.failures[key]
	if exp > 10 {
		exp = 10
	}
	backoff := time.Duration(math.Pow(2, float64(exp))) * time.Second
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	r.retryAt[key] = r.now().Add(backoff)
	return backoff
}

// RecordSuccess limpa o estado da chave; a próxima chamada é liberada imediatamente.
func (r *RateLimiter) RecordSuccess(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.failures, key)
	delete(r.retryAt, key)
}

// TrackedFailures conta quantas chaves estão em backoff (para o status do bot).
func (r *RateLimiter) TrackedFailures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}
