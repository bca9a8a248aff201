// Copyright 2022 Sylvain Müller. All rights reserved.
// Mount of this source code is governed by a Apache-2.0 license that can be found
// at https://github.com/tigerwill90/waypoint/blob/master/LICENSE.txt.

// Package signals wires process signals to a shutdown context and a reload channel.
package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var onlyOneSignalHandler = make(chan struct{})

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// SetupHandler registers for SIGTERM and SIGINT. A context is returned which is canceled on one of these signals.
// If a second signal is caught, the program is terminated with exit code 1. Only one of SetupHandler or
// SetupHandlerWithReload can be called, and only once.
func SetupHandler() context.Context {
	ctx, _ := setup(false)
	return ctx
}

// SetupHandlerWithReload is like SetupHandler, and also returns a channel receiving a value on each SIGHUP.
func SetupHandlerWithReload() (context.Context, <-chan struct{}) {
	return setup(true)
}

func setup(reload bool) (context.Context, <-chan struct{}) {
	close(onlyOneSignalHandler) // panics when called twice

	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, shutdownSignals...)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1) // second signal. Exit directly.
	}()

	if !reload {
		return ctx, nil
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	reloads := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				signal.Stop(hup)
				return
			case <-hup:
				select {
				case reloads <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ctx, reloads
}
