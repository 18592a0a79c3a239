package mcp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jhoicas/danfe-xml-api/internal/application/danfe"
)

const maxMessageBytes = 16 << 20

// ServeStdio atiende mensajes delimitados por salto de línea hasta EOF o ctx cancelado.
// Cada petición corre en su goroutine; las respuestas se escriben de a una por línea.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(danfe.WithSource(ctx, danfe.SourceStdio))
	defer cancel()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		werr error
	)
	write := func(b []byte) {
		mu.Lock()
		defer mu.Unlock()
		if werr != nil {
			return
		}
		if _, err := out.Write(append(b, '\n')); err != nil {
			werr = err
			s.log.Error().Err(err).Msg("falha ao escrever resposta no stdout")
		}
	}
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			wg.Wait()
			if err != nil {
				return fmt.Errorf("mcp: leitura do stdin: %w", err)
			}
			return werr
		case line := <-lines:
			wg.Add(1)
			go func() {
				defer wg.Done()
				if resp := s.Handle(ctx, line); resp != nil {
					write(resp)
				}
			}()
		}
	}
}
