package mcp

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/danfe-xml-api/internal/domain"
	"github.com/jhoicas/danfe-xml-api/pkg/logger"
)

const outboundBuffer = 16

// Session sesión del transporte HTTP. Outbound alimenta el stream SSE de GET /mcp.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	closed   bool
	outbound chan []byte
}

// Outbound canal de mensajes del servidor hacia el cliente. Se cierra al terminar la sesión.
func (s *Session) Outbound() <-chan []byte {
	return s.outbound
}

// Send encola un mensaje sin bloquear. Devuelve false si la sesión cerró o el buffer está lleno.
func (s *Session) Send(msg []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.outbound <- msg:
		return true
	default:
		return false
	}
}

// Notify encola una notificación JSON-RPC con las mismas reglas que Send.
func (s *Session) Notify(method string, params any) bool {
	msg, err := json.Marshal(Notification{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return false
	}
	return s.Send(msg)
}

// ProgressNotifier envía cada etapa de la recuperación como notifications/message.
// requestID es el id JSON-RPC de la llamada que la originó; puede ir vacío.
func (s *Session) ProgressNotifier(requestID json.RawMessage) domain.ProgressFunc {
	return func(stage string) {
		s.Notify(MethodLogMessage, LogMessageParams{
			Level:  "info",
			Logger: "danfe",
			Data:   progressData{Stage: stage, RequestID: requestID},
		})
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.outbound)
	}
}

// SessionOptions parámetros del SessionManager.
type SessionOptions struct {
	TTL           time.Duration  // inactividad tras la cual la sesión expira
	SweepInterval time.Duration  // 0 = TTL/2
	OnChange      func(size int) // se invoca con el número de sesiones tras cada cambio
}

// SessionManager registro de sesiones con expiración por inactividad.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     SessionOptions
	log      *logger.Logger
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewSessionManager crea el registro y arranca el barrido de sesiones expiradas.
func NewSessionManager(opts SessionOptions, log *logger.Logger) *SessionManager {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = opts.TTL / 2
	}
	if log == nil {
		log = logger.Nop()
	}
	m := &SessionManager{
		sessions: make(map[string]*Session),
		opts:     opts,
		log:      log.Named("sessions"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *SessionManager) janitor() {
	defer close(m.done)
	t := time.NewTicker(m.opts.SweepInterval)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.log.Info().Int("expiradas", n).Msg("sessões expiradas removidas")
			}
		}
	}
}

// Create registra una sesión nueva.
func (m *SessionManager) Create() *Session {
	now := time.Now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		lastSeen:  now,
		outbound:  make(chan []byte, outboundBuffer),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.log.Debug().Str("session_id", s.ID).Msg("sessão criada")
	m.changed(n)
	return s
}

// Get devuelve la sesión viva o domain.ErrSessionNotFound.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.expired(time.Now(), m.opts.TTL) {
		m.Delete(id)
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Touch renueva la actividad de la sesión.
func (m *SessionManager) Touch(id string) error {
	_, err := m.Resume(id)
	return err
}

// Resume devuelve la sesión viva y renueva su actividad.
func (m *SessionManager) Resume(id string) (*Session, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.touch(time.Now())
	return s, nil
}

// Delete termina la sesión y cierra su canal. Devuelve false si no existía.
func (m *SessionManager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	m.log.Debug().Str("session_id", id).Msg("sessão encerrada")
	m.changed(n)
	return true
}

// Len número de sesiones registradas.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep elimina las sesiones expiradas y devuelve cuántas eran.
func (m *SessionManager) Sweep() int {
	now := time.Now()
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.expired(now, m.opts.TTL) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	if len(expired) > 0 {
		m.changed(n)
	}
	return len(expired)
}

// Close detiene el barrido y termina todas las sesiones.
func (m *SessionManager) Close() {
	m.once.Do(func() {
		close(m.stop)
		<-m.done

		m.mu.Lock()
		all := m.sessions
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()
		for _, s := range all {
			s.close()
		}
		m.changed(0)
	})
}

func (m *SessionManager) changed(n int) {
	if m.opts.OnChange != nil {
		m.opts.OnChange(n)
	}
}
