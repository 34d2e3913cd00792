// Package mocks provides shared mock implementations for tests.
//
// Mocks expose one function field per interface method. A nil field falls
// back to the mock's default return values:
//
//	svc := &mocks.MockAssessmentService{
//	    GetSessionFn: func(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
//	        return nil, assessment.ErrSessionNotFound
//	    },
//	}
package mocks
