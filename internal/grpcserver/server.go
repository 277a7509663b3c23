package grpcserver

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"searchlib/internal/auth"
	"searchlib/internal/catalog"
	"searchlib/internal/ingest"
)

type Server struct {
	Catalog  *catalog.Repo
	Ingestor *ingest.Ingestor
}

func NewServer(repo *catalog.Repo, in *ingest.Ingestor) *Server {
	return &Server{Catalog: repo, Ingestor: in}
}

func (s *Server) RunBatch(ctx context.Context, _ *RunBatchRequest) (*RunBatchResponse, error) {
	if s.Ingestor == nil {
		return nil, status.Error(codes.Unimplemented, "ingestion disabled")
	}
	sum, err := s.Ingestor.Run(ctx)
	if err != nil {
		var fe *ingest.FileError
		if errors.As(err, &fe) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Error(codes.Internal, "batch failed")
	}
	return &RunBatchResponse{Summary: sum}, nil
}

func (s *Server) GetRecord(ctx context.Context, req *GetRecordRequest) (*GetRecordResponse, error) {
	if req == nil || req.ID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	rec, err := s.Catalog.Get(ctx, req.ID)
	if err != nil {
		return nil, status.Error(codes.Internal, "get failed")
	}
	if rec == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}
	return &GetRecordResponse{Record: *rec}, nil
}

func (s *Server) SearchRecords(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	q := catalog.Query{
		Q:        strings.TrimSpace(req.Q),
		Title:    req.Title,
		Author:   req.Author,
		Keyword:  req.Keyword,
		ISBN:     req.ISBN,
		YearFrom: req.YearFrom,
		YearTo:   req.YearTo,
		Sources:  req.Sources,
		Types:    req.Types,
		Limit:    req.Limit,
		Offset:   req.Offset,
	}

	items, total, err := s.Catalog.Search(ctx, q)
	if err != nil {
		if errors.Is(err, catalog.ErrBadQuery) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, "search failed")
	}
	return &SearchResponse{Total: total, Limit: q.Limit, Offset: q.Offset, Items: items}, nil
}

// RequireRoleFor returns an interceptor that demands a bearer token with one
// of roles in the "authorization" metadata of the named methods.
func RequireRoleFor(tokens auth.TokenService, repo *auth.Repo, methods []string, roles ...auth.Role) grpc.UnaryServerInterceptor {
	guarded := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		guarded["/"+ServiceName+"/"+m] = struct{}{}
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := guarded[info.FullMethod]; !ok {
			return handler(ctx, req)
		}

		var header string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if v := md.Get("authorization"); len(v) > 0 {
				header = v[0]
			}
		}
		claims, err := auth.Verify(ctx, tokens, repo, header)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}
		if !auth.HasRole(claims, roles...) {
			return nil, status.Error(codes.PermissionDenied, "insufficient role")
		}
		return handler(ctx, req)
	}
}
