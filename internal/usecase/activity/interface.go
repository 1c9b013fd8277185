package activity

import "context"

// ActivityUsecase defines the interface for activity business logic operations.
type ActivityUsecase interface {
	ListActivities(ctx context.Context) (*ListActivitiesResponse, error)
	SignUp(ctx context.Context, in SignUpRequest) (*SignUpResponse, error)
	Unregister(ctx context.Context, in UnregisterRequest) (*UnregisterResponse, error)
}
