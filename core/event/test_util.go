package event

import (
	"github.com/atcloud/signup/core"
)

// NewServiceMock returns a Service wired for tests: in-memory repo, no
// transactions, synchronous email recording.
func NewServiceMock(repo Repository, organizers OrganizerDirectory, mailSvc core.EmailService) *Service {
	return &Service{
		repo:       repo,
		organizers: organizers,
		mailSvc:    mailSvc,
		conf:       &core.Config{AppName: "at-Cloud Sign-up System", TestMode: true},
	}
}
