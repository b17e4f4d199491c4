package services

import (
	"errors"

	"github.com/huangang/sqldesk/internal/provisioner"
	"github.com/huangang/sqldesk/pkg/response"
)

// Errors returned by services. Handlers pass them straight to response.Error.
// Derive variants with WithDetail/Wrap; never mutate these values.
var (
	ErrMissingFields   = response.NewUnprocessable("Missing fields")
	ErrInvalidName     = response.NewUnprocessable("Invalid project name")
	ErrInvalidLocation = response.NewUnprocessable("Invalid backup location")
	ErrOwnerNotFound   = response.NewUnprocessable("Owner not found")
	ErrParticipantGone = response.NewUnprocessable("Participant not found")
	ErrInvalidUserID   = response.NewUnprocessable("Invalid user id")
	ErrOwnerAssigned   = response.NewUnprocessable("Owner already assigned")
	ErrRemoveOwner     = response.NewUnprocessable("Cannot remove owner")
	ErrInvalidOutcome  = response.NewUnprocessable("Outcome must be executed or not_executed")
	ErrInvalidPayload  = response.NewUnprocessable("Payload must be valid JSON")

	ErrProjectNotFound  = response.NewNotFound("Project not found")
	ErrTemplateNotFound = response.NewNotFound("Template not found")
	ErrBackupNotFound   = response.NewNotFound("Backup not found")
	ErrServerNotFound   = response.NewNotFound("Server not found")
	ErrUserNotFound     = response.NewNotFound("User not found")
	ErrRunNotFound      = response.NewNotFound("Run not found")

	ErrForbidden = response.NewForbidden("Forbidden")

	ErrTemplateLocked     = response.NewConflict("Template is locked")
	ErrProjectNameTaken   = response.NewConflict("Project name must be unique")
	ErrDatabaseExists     = response.NewConflict("Database already exists")
	ErrRenameDetaches     = response.NewConflict("Project database cannot be renamed")
	ErrAlreadyParticipant = response.NewConflict("User already participant")
	ErrEmailTaken         = response.NewConflict("Email already registered")
	ErrRunSettled         = response.NewConflict("Run is not awaiting resolution")

	ErrInvalidCredentials = response.NewUnauthorized("Invalid email or password")
	ErrUserDisabled       = response.NewForbidden("User is disabled")
	ErrWrongPassword      = response.NewBadRequest("Incorrect old password")

	ErrExecutionFailed = response.NewServerError("Template execution failed")
	ErrStorage         = response.NewServerError("Backup storage failed")
	ErrProvision       = response.NewServerError("Database provisioning failed")
	ErrRunNotRecorded  = response.NewServerError("Template executed but its run could not be recorded")
)

// mapProvisionError translates provisioner failures into API errors.
func mapProvisionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, provisioner.ErrInvalidName):
		return ErrInvalidName
	case errors.Is(err, provisioner.ErrDatabaseExists):
		return ErrDatabaseExists
	default:
		return ErrProvision.WithDetail(err.Error()).Wrap(err)
	}
}
