// Command testbin is the program tmuxtest's integration tests run inside
// tmux. It reads stdin line by line and answers each line after a "ready>"
// prompt:
//
//   - "quit": exits with status 0
//   - "fail": exits with status 1
//   - "later MS TEXT": prints TEXT after MS milliseconds, without blocking input
//   - "lines N": prints N numbered lines
//   - "size": prints the terminal size
//   - "env NAME": prints the value of environment variable NAME
//   - anything else: prints "echo: <line>"
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

type screen struct {
	mu         sync.Mutex
	cols, rows int
}

func (s *screen) updateSize() {
	c, r, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return
	}
	s.mu.Lock()
	s.cols, s.rows = c, r
	s.mu.Unlock()
}

func (s *screen) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Printf(format, args...)
}

func main() {
	s := &screen{}
	s.updateSize()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGWINCH)
	go func() {
		for range sigCh {
			s.updateSize()
		}
	}()

	s.printf("ready>")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		input := scanner.Text()
		cmd, arg, _ := strings.Cut(input, " ")

		switch cmd {
		case "quit":
			os.Exit(0)

		case "fail":
			os.Exit(1)

		case "later":
			msStr, text, _ := strings.Cut(arg, " ")
			ms, err := strconv.Atoi(msStr)
			if err != nil {
				s.printf("error: invalid delay %q\n", msStr)
				break
			}
			go func() {
				time.Sleep(time.Duration(ms) * time.Millisecond)
				s.printf("%s\n", text)
			}()

		case "lines":
			count, err := strconv.Atoi(arg)
			if err != nil {
				s.printf("error: invalid count %q\n", arg)
				break
			}
			for i := 1; i <= count; i++ {
				s.printf("line %d\n", i)
			}

		case "size":
			s.mu.Lock()
			fmt.Printf("size: %dx%d\n", s.cols, s.rows)
			s.mu.Unlock()

		case "env":
			s.printf("%s=%s\n", arg, os.Getenv(arg))

		default:
			s.printf("echo: %s\n", input)
		}
		s.printf("ready>")
	}
}
