// Copyright 2024 The Mookodi Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"github.com/fsnotify/fsnotify"

	"github.com/piascik/Mookodi-sub000/internal/xlog"
)

// Watcher watches a configuration file for changes and logs when one is
// seen, generalizing cmd/lepton/watch_linux.go's self-restart watcher: that
// watcher exits the process on change so a supervisor can restart it, this
// one only logs, since a running instrument server should not vanish out
// from under an in-progress exposure or mechanism move.
type Watcher struct {
	watcher *fsnotify.Watcher
	log     *xlog.Logger
	done    chan struct{}
}

// NewWatcher starts watching path. Call Close to stop.
func NewWatcher(path string, log *xlog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{watcher: fw, log: log, done: make(chan struct{})}
	go w.run(path)
	return w, nil
}

func (w *Watcher) run(path string) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.log.Logf(xlog.Terse, "config file %s changed: %s (reload not automatic, restart the server to apply)", path, event.Op)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Errorf("watching %s: %v", path, err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
