// Package grpcauth adapts the saascore verifier to gRPC. The interceptors
// extract the bearer token from incoming metadata, run verification, put
// the resulting identity on the handler context, and map failure kinds
// onto gRPC status codes.
package grpcauth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	saascore "github.com/Symbiot01/saas-core"
)

// TokenExtractor pulls the raw token out of an incoming RPC context. An
// empty string with a nil error means no token was supplied.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor extracts a bearer token from the standard
// "authorization" metadata key.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	if len(values) == 0 {
		return "", nil
	}

	parts := strings.Fields(values[0])
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", status.Error(codes.Unauthenticated, "authorization metadata format must be Bearer {token}")
	}

	return parts[1], nil
}

// ExclusionChecker reports whether a full method name is exempt from
// authentication.
type ExclusionChecker func(fullMethod string) bool

// Interceptor provides configurable token authentication for gRPC servers.
type Interceptor struct {
	verifier         saascore.Verifier
	tokenExtractor   TokenExtractor
	exclusionChecker ExclusionChecker
	logger           saascore.Logger
}

// New creates an Interceptor around the given verifier.
//
// Optional options:
//   - WithTokenExtractor: custom metadata extraction (default: authorization bearer)
//   - WithExclusionChecker: exempt methods from authentication
//   - WithLogger: log verification failures
func New(verifier saascore.Verifier, opts ...Option) (*Interceptor, error) {
	if verifier == nil {
		return nil, status.Error(codes.Internal, "verifier is required but was nil")
	}

	i := &Interceptor{
		verifier:       verifier,
		tokenExtractor: MetadataTokenExtractor,
		logger:         &saascore.DefaultLogger{},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// authenticate extracts and verifies the token, returning a context
// carrying the verified identity.
func (i *Interceptor) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	if i.exclusionChecker != nil && i.exclusionChecker(fullMethod) {
		return ctx, nil
	}

	token, err := i.tokenExtractor(ctx)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "bearer token is missing")
	}

	identity, err := i.verifier.Verify(ctx, token)
	if err != nil {
		i.logger.Debugf("verification failed for %s: %v", fullMethod, err)
		return nil, status.Error(CodeForError(err), err.Error())
	}

	return saascore.NewContext(ctx, identity), nil
}

// CodeForError maps a verification error onto a gRPC status code:
// configuration faults are Internal, an unverified email is
// PermissionDenied, and every other verification failure is
// Unauthenticated.
func CodeForError(err error) codes.Code {
	switch {
	case saascore.IsConfigurationError(err):
		return codes.Internal
	case saascore.IsEmailNotVerifiedError(err):
		return codes.PermissionDenied
	default:
		return codes.Unauthenticated
	}
}

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// authenticates each request.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		newCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that
// authenticates each stream before the handler runs.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &identityServerStream{ServerStream: ss, ctx: newCtx})
	}
}

// identityServerStream overrides the stream context with one carrying the
// verified identity.
type identityServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identityServerStream) Context() context.Context {
	return s.ctx
}
