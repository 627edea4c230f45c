package user

import (
	"time"

	"github.com/atcloud/signup/core"
)

// NewServiceMock returns a Service wired for tests.
func NewServiceMock(repo Repository, mailSvc core.EmailService) *Service {
	conf := &core.Config{
		AppName:   "at-Cloud Sign-up System",
		SecretKey: "secret",
		TestMode:  true,
	}
	conf.Server.PasswordResetTimeoutDelta = 3 * 24 * time.Hour
	return NewService(repo, mailSvc, conf)
}
