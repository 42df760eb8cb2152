package diskutil

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// maxCapturedOutput 流式执行时最多保留的输出字节数
const maxCapturedOutput = 64 << 10

// waitDelay 上下文取消后等待子进程 I/O 关闭的时间
const waitDelay = 5 * time.Second

// Runner 执行外部命令
type Runner interface {
	// Run 执行命令并返回合并后的 stdout/stderr
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Stream 执行命令，按行（\n、\r、\b 分隔）回调输出，返回完整输出
	Stream(ctx context.Context, onLine func(line string), name string, args ...string) ([]byte, error)
}

// CommandError 外部命令执行失败
type CommandError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ", output: " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// OutputOf 返回错误中携带的命令输出，非 CommandError 时返回 err.Error()
func OutputOf(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && strings.TrimSpace(cmdErr.Output) != "" {
		return cmdErr.Output
	}
	return err.Error()
}

// ExecRunner 基于 os/exec 的 Runner
type ExecRunner struct {
	timeout time.Duration
}

// NewExecRunner 创建 ExecRunner，timeout 为 0 表示不限制执行时间
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{timeout: timeout}
}

func (r *ExecRunner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}

// Run 实现 Runner 接口
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, &CommandError{Name: name, Args: args, Output: string(output), Err: err}
	}
	return output, nil
}

// Stream 实现 Runner 接口
func (r *ExecRunner) Stream(ctx context.Context, onLine func(line string), name string, args ...string) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	cmd.WaitDelay = waitDelay

	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, &CommandError{Name: name, Args: args, Err: err}
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	var captured bytes.Buffer
	scanner := bufio.NewScanner(pr)
	scanner.Split(scanProgressLines)
	for scanner.Scan() {
		line := scanner.Text()
		if captured.Len() < maxCapturedOutput {
			captured.WriteString(line)
			captured.WriteByte('\n')
		}
		if onLine != nil && strings.TrimSpace(line) != "" {
			onLine(line)
		}
	}
	// 读端出错时继续排空，避免子进程阻塞在写管道上
	_, _ = io.Copy(io.Discard, pr)

	if err := <-waitErr; err != nil {
		return captured.Bytes(), &CommandError{Name: name, Args: args, Output: captured.String(), Err: err}
	}
	return captured.Bytes(), nil
}

// scanProgressLines 按 \n、\r、\b 切分，进度类工具常用 \r 或退格覆盖同一行
func scanProgressLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\n\r\b"); i >= 0 {
		j := i + 1
		for j < len(data) && (data[j] == '\n' || data[j] == '\r' || data[j] == '\b') {
			j++
		}
		return j, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
