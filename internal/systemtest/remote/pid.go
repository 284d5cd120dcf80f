package remote

import (
	"bufio"
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"

	"github.com/gaoyaxin/kafka/internal/common/harnesserrors"
)

const capturePollInterval = 500 * time.Millisecond

var pidLinePattern = regexp.MustCompile(`pid:(\d+)`)

// ParsePidMarker extracts the pid from a marker file's contents, a single
// line of the form "pid:12345".
func ParsePidMarker(contents string) (int, error) {
	m := pidLinePattern.FindStringSubmatch(contents)
	if m == nil {
		return 0, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "pidMarker",
			Value:   strings.TrimSpace(contents),
			Message: "no pid line found",
		})
	}
	pid, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return pid, nil
}

// CapturePid polls the pid marker file a detached launch writes, bounded by
// ceiling. The process needs a moment to fork and write the marker, so
// polling replaces a fixed settle sleep; the ceiling preserves the worst-case
// wait.
func CapturePid(ctx context.Context, gw Gateway, host, markerPath string, ceiling time.Duration) (int, error) {
	attempts := uint(ceiling / capturePollInterval)
	if attempts == 0 {
		attempts = 1
	}
	var pid int
	err := retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return retry.Unrecoverable(err)
			}
			res, err := gw.Run(ctx, host, fmt.Sprintf("cat %s", markerPath))
			if err != nil {
				return err
			}
			pid, err = ParsePidMarker(res.Stdout)
			return err
		},
		retry.Attempts(attempts),
		retry.Delay(capturePollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, errors.WithStack(ctxErr)
		}
		return 0, errors.WithStack(&harnesserrors.ErrPidRegistrationTimeout{
			Host:       host,
			MarkerPath: markerPath,
			Ceiling:    ceiling,
		})
	}
	return pid, nil
}

// RunDetachedAndCapturePid launches a backgrounded command whose trailing
// shell clause writes the marker file, then reads the pid back.
func RunDetachedAndCapturePid(ctx context.Context, gw Gateway, host, command, markerPath string, ceiling time.Duration) (int, error) {
	if err := gw.RunDetached(ctx, host, command); err != nil {
		return 0, err
	}
	return CapturePid(ctx, gw, host, markerPath, ceiling)
}

// ProcessTree returns pid plus every descendant process on host, parents
// before children.
func ProcessTree(ctx context.Context, gw Gateway, host string, pid int) ([]int, error) {
	res, err := gw.Run(ctx, host, "ps ax -o pid,ppid")
	if err != nil {
		return nil, err
	}
	children := make(map[int][]int)
	scanner := bufio.NewScanner(strings.NewReader(res.Stdout))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		p, perr := strconv.Atoi(fields[0])
		pp, pperr := strconv.Atoi(fields[1])
		if perr != nil || pperr != nil {
			continue
		}
		children[pp] = append(children[pp], p)
	}

	tree := []int{pid}
	for i := 0; i < len(tree); i++ {
		tree = append(tree, children[tree[i]]...)
	}
	return tree, nil
}

// Signal sends sig to every pid in a single remote kill invocation.
func Signal(ctx context.Context, gw Gateway, host string, pids []int, sig syscall.Signal) error {
	if len(pids) == 0 {
		return nil
	}
	strs := make([]string, len(pids))
	for i, p := range pids {
		strs[i] = strconv.Itoa(p)
	}
	command := fmt.Sprintf("kill -%d %s", int(sig), strings.Join(strs, " "))
	_, err := gw.Run(ctx, host, command)
	return err
}

// RemoveDirContents wipes a remote directory's contents. Only paths under
// allowedPrefix may be deleted; anything else is an ErrUnsafePath, which
// aborts the whole run.
func RemoveDirContents(ctx context.Context, gw Gateway, host, dir, allowedPrefix string) error {
	cleaned := path.Clean(dir)
	prefix := path.Clean(allowedPrefix)
	if cleaned == "/" || (cleaned != prefix && !strings.HasPrefix(cleaned, prefix+"/")) {
		return errors.WithStack(&harnesserrors.ErrUnsafePath{
			Host:          host,
			Path:          dir,
			AllowedPrefix: allowedPrefix,
		})
	}
	_, err := gw.Run(ctx, host, fmt.Sprintf("rm -rf %s/*", cleaned))
	return err
}

// MakeDirs creates directories on host with a single mkdir -p.
func MakeDirs(ctx context.Context, gw Gateway, host string, dirs []string) error {
	if len(dirs) == 0 {
		return nil
	}
	_, err := gw.Run(ctx, host, fmt.Sprintf("mkdir -p %s", strings.Join(dirs, " ")))
	return err
}
