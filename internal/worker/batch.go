package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Outcome is the result of one task run by RunAll
type Outcome[T any] struct {
	Index int
	Value T
	Err   error
}

// RunAll executes every task on at most p.Workers() goroutines and reports
// each outcome in task order. A failing task does not stop the others; tasks
// not yet started when ctx is cancelled report ctx.Err().
func RunAll[T any](ctx context.Context, p *Pool, tasks []Task[T]) []Outcome[T] {
	out := make([]Outcome[T], len(tasks))
	if len(tasks) == 0 {
		return out
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(p.Workers(), len(tasks)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i].Index = i
				if err := ctx.Err(); err != nil {
					out[i].Err = err
					continue
				}
				out[i].Value, out[i].Err = tasks[i](ctx)
			}
		}()
	}
	for i := range tasks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

// ReadList reads one entry per line from path, skipping blank lines and
// # comments and dropping repeats
func ReadList(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return entries, nil
}
