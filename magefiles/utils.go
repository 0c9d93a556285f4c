//go:build mage

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/magefile/mage/mg"
)

type cmdOptions struct {
	args   []string
	dir    string
	stream bool
}

type cmdOption func(*cmdOptions)

func withArgs(args ...string) cmdOption {
	return func(o *cmdOptions) { o.args = args }
}

// withDir runs the command from dir. Relative arguments resolve against it.
func withDir(dir string) cmdOption {
	return func(o *cmdOptions) { o.dir = dir }
}

func withStream() cmdOption {
	return func(o *cmdOptions) { o.stream = true }
}

// runCmd returns the combined output. Unless streamed, the output is only
// printed when the command fails.
func runCmd(command string, options ...cmdOption) (string, error) {
	opts := &cmdOptions{}
	for _, o := range options {
		o(opts)
	}

	where := ""
	if opts.dir != "" {
		where = " (in " + opts.dir + ")"
	}
	fmt.Printf("> %s %s%s\n", command, strings.Join(opts.args, " "), where)

	var out bytes.Buffer
	var sink io.Writer = &out
	stream := opts.stream || mg.Verbose()
	if stream {
		sink = io.MultiWriter(&out, os.Stdout)
	}
	cmd := exec.Command(command, opts.args...)
	cmd.Dir = opts.dir
	cmd.Stdout = sink
	cmd.Stderr = sink

	if err := cmd.Run(); err != nil {
		if !stream {
			fmt.Fprintln(os.Stderr, out.String())
		}
		return out.String(), fmt.Errorf("%s failed: %w", command, err)
	}
	return out.String(), nil
}
