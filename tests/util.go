package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/atcloud/signup/core/event"
	"github.com/atcloud/signup/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateEvent(
	t *testing.T,
	repo event.Repository,
	evt event.Event,
) event.Event {
	now := time.Now().UTC()
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = now
	}
	if evt.UpdatedAt.IsZero() {
		evt.UpdatedAt = now
	}
	if evt.Date.IsZero() {
		evt.Date = now.Add(7 * 24 * time.Hour)
	}
	evt, err := repo.CreateEvent(context.Background(), evt)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return evt
}
