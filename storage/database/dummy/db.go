// Package dummydb provides in-memory repositories for tests and local hacking.
package dummydb

import (
	"sync"

	"github.com/atcloud/signup/core/event"
	"github.com/atcloud/signup/core/user"
)

type (
	DB struct {
		user  *userTable
		event *eventTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	eventTable struct {
		sync.RWMutex
		table map[string]*event.Event
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:  &userTable{table: make(map[string]*user.User)},
		event: &eventTable{table: make(map[string]*event.Event)},
	}
	return db, nil
}
