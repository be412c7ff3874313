package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/logging"
	"github.com/deemkeen/stegogram/middleware"
	"github.com/deemkeen/stegogram/util"
	"github.com/deemkeen/stegogram/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	gossh "golang.org/x/crypto/ssh"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the terminal ui over ssh",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeServices, err := openServices(ctx)
	if err != nil {
		return err
	}
	defer closeServices()

	s, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.SshPort)),
		wish.WithHostKeyPath(util.ResolveFilePathWithSubdir(".ssh", "hostkey")),
		// accounts live behind the in-app sign in, any client may connect
		wish.WithPublicKeyAuth(func(ssh.Context, ssh.PublicKey) bool { return true }),
		wish.WithKeyboardInteractiveAuth(func(ssh.Context, gossh.KeyboardInteractiveChallenge) bool { return true }),
		wish.WithMiddleware(
			middleware.MainTui(svc),
			middleware.SessionLogger(logger),
			logging.Middleware(), // last middleware executed first
		),
	)
	if err != nil {
		return fmt.Errorf("create ssh server: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting ssh server", zap.String("host", conf.Conf.Host), zap.Int("port", conf.Conf.SshPort))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errCh <- fmt.Errorf("ssh server: %w", err)
		}
	}()

	if conf.Conf.WithWeb {
		go func() {
			if err := web.Serve(ctx, conf, svc.Profiles, logger); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	logger.Info("stopping ssh server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if shutdownErr := s.Shutdown(shutdownCtx); shutdownErr != nil && !errors.Is(shutdownErr, ssh.ErrServerClosed) {
		return errors.Join(err, shutdownErr)
	}
	return err
}
