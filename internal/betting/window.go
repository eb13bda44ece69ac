package betting

import "time"

// WindowState é o estado da janela de apostas de uma partida.
type WindowState int

const (
	WindowOpen WindowState = iota
	WindowClosed
)

func (s WindowState) String() string {
	if s == WindowOpen {
		return "open"
	}
	return "closed"
}

// Window é a janela de apostas ancorada no início estimado da partida.
// A estimativa pode ser refinada depois (relógio da telemetria), então o
// estado é sempre recalculado a partir do início corrente, nunca cacheado.
type Window struct {
	Start    time.Time
	Duration time.Duration
}

// NewWindow cria a janela a partir do início estimado em epoch segundos.
func NewWindow(startUnix int64, duration time.Duration) Window {
	return Window{Start: time.Unix(startUnix, 0), Duration: duration}
}

// StateAt avalia a janela no instante dado. Instantes antes do início
// contam como abertos: o refinamento pode ter empurrado o início para
// frente e a partida certamente já existe se está rastreada.
func (w Window) StateAt(t time.Time) WindowState {
	if t.Before(w.Start) {
		return WindowOpen
	}
	if t.Sub(w.Start) <= w.Duration {
		return WindowOpen
	}
	return WindowClosed
}

// Remaining retorna quanto tempo de janela resta; zero se fechada.
func (w Window) Remaining(t time.Time) time.Duration {
	end := w.Start.Add(w.Duration)
	if !t.Before(end) {
		return 0
	}
	return end.Sub(t)
}
