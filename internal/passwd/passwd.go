// Package passwd changes a local account password by rewriting the shadow
// file through the shell, remounting a read-only root when needed.
package passwd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/penosext/pentools/internal/logging"
	"github.com/penosext/pentools/internal/shell"
	"github.com/penosext/pentools/pkg/types"
	"go.uber.org/zap"
)

const (
	DefaultShadowPath = "/etc/shadow"
	saltChars         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789./"
	saltLen           = 8
)

var (
	// ErrInvalidUser is returned for user names that are unsafe to put in
	// a shadow line.
	ErrInvalidUser = errors.New("invalid user name")
	// ErrNoHasher is returned when neither openssl nor busybox can hash.
	ErrNoHasher = errors.New("no password hashing tool available")
	// ErrReadOnly is returned when the root filesystem cannot be remounted.
	ErrReadOnly = errors.New("cannot remount root filesystem read-write")

	userRe     = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)
	readOnlyRe = regexp.MustCompile(`[(,]ro[,)]`)
)

// Changer implements the terminal's password change procedure.
type Changer struct {
	sh         shell.Shell
	shadowPath string
}

// NewChanger creates a Changer writing to shadowPath (DefaultShadowPath
// when empty).
func NewChanger(sh shell.Shell, shadowPath string) *Changer {
	if shadowPath == "" {
		shadowPath = DefaultShadowPath
	}
	return &Changer{sh: sh, shadowPath: shadowPath}
}

// Change sets user's password. Progress is sent to report.
func (c *Changer) Change(ctx context.Context, user, password string, report func(types.LineType, string)) error {
	if report == nil {
		report = func(types.LineType, string) {}
	}
	if !userRe.MatchString(user) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}

	remounted, err := c.ensureWritable(ctx, report)
	if err != nil {
		return err
	}
	if remounted {
		defer func() {
			if _, err := c.sh.Exec(ctx, "mount -o remount,ro /"); err != nil {
				logging.Warn("passwd: failed to restore read-only root", zap.Error(err))
				return
			}
			report(types.LineSystem, "root filesystem restored to read-only")
		}()
	}

	// The hash input and the shadow update both carry secrets.
	secret := shell.Sensitive(ctx)

	hash, err := c.hash(secret, password, report)
	if err != nil {
		return err
	}
	report(types.LineSystem, fmt.Sprintf("generated hash %s...", truncate(hash, 20)))

	quoted := shell.Quote(c.shadowPath)
	if _, err := c.sh.Exec(ctx, fmt.Sprintf("cp %s %s", quoted, shell.Quote(c.shadowPath+".bak"))); err != nil {
		logging.Warn("passwd: shadow backup failed", zap.Error(err))
	}

	script := fmt.Sprintf(
		"if grep -q %s %s; then sed -i %s %s; else echo %s >> %s; fi",
		shell.Quote("^"+user+":"), quoted,
		shell.Quote("s|^"+user+":[^:]*:|"+user+":"+hash+":|"), quoted,
		shell.Quote(user+":"+hash+":0:0:99999:7:::"), quoted,
	)
	if _, err := c.sh.Exec(secret, script); err != nil {
		return fmt.Errorf("failed to update %s: %w", c.shadowPath, err)
	}

	logging.Info("passwd: password changed", zap.String("user", user))
	return nil
}

// ensureWritable remounts / read-write when it is mounted read-only and
// reports whether it did.
func (c *Changer) ensureWritable(ctx context.Context, report func(types.LineType, string)) (bool, error) {
	out, err := c.sh.Exec(ctx, "mount | grep ' / '")
	if err != nil || !readOnlyRe.MatchString(out) {
		return false, nil
	}

	report(types.LineSystem, "root filesystem is read-only, remounting read-write...")
	out, err = c.sh.Exec(ctx, "mount -o remount,rw / 2>&1")
	msg := out
	if err != nil {
		msg += err.Error()
	}
	if strings.Contains(msg, "Permission denied") || strings.Contains(msg, "not permitted") {
		return false, ErrReadOnly
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrReadOnly, err)
	}
	report(types.LineSystem, "root filesystem remounted read-write")
	return true, nil
}

// hash tries SHA-512 and SHA-256 crypt via openssl, then busybox cryptpw.
func (c *Changer) hash(ctx context.Context, password string, report func(types.LineType, string)) (string, error) {
	salt, err := Salt()
	if err != nil {
		return "", err
	}
	input := "printf '%s' " + shell.Quote(password)

	report(types.LineSystem, "generating SHA-512 password hash...")
	attempts := []string{
		input + " | openssl passwd -6 -salt " + shell.Quote(salt) + " -stdin 2>/dev/null",
		input + " | openssl passwd -5 -salt " + shell.Quote(salt) + " -stdin 2>/dev/null",
		input + " | busybox cryptpw -m sha512 -S " + shell.Quote(salt) + " 2>/dev/null",
	}
	for _, cmd := range attempts {
		out, err := c.sh.Exec(ctx, cmd)
		if err != nil {
			continue
		}
		if h := strings.TrimSpace(out); strings.HasPrefix(h, "$") {
			return h, nil
		}
	}
	return "", ErrNoHasher
}

// Salt returns a random crypt salt.
func Salt() (string, error) {
	max := big.NewInt(int64(len(saltChars)))
	b := make([]byte, saltLen)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		b[i] = saltChars[n.Int64()]
	}
	return string(b), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
