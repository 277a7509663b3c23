// Package grpcserver exposes the catalog over gRPC. Messages travel as JSON
// under the "json" content subtype, so the service is declared by hand
// instead of from protobuf definitions.
package grpcserver

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"

	"searchlib/pkg/models"
)

const ServiceName = "searchlib.Catalog"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return "json"
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type RunBatchRequest struct{}

type RunBatchResponse struct {
	Summary models.BatchSummary `json:"summary"`
}

type GetRecordRequest struct {
	ID int64 `json:"id"`
}

type GetRecordResponse struct {
	Record models.RecordView `json:"record"`
}

type SearchRequest struct {
	Q        string   `json:"q,omitempty"`
	Title    string   `json:"title,omitempty"`
	Author   string   `json:"author,omitempty"`
	Keyword  string   `json:"keyword,omitempty"`
	ISBN     string   `json:"isbn,omitempty"`
	YearFrom int      `json:"year_from,omitempty"`
	YearTo   int      `json:"year_to,omitempty"`
	Sources  []string `json:"sources,omitempty"`
	Types    []string `json:"types,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

type SearchResponse struct {
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Items  []models.RecordView `json:"items"`
}

type CatalogServer interface {
	RunBatch(context.Context, *RunBatchRequest) (*RunBatchResponse, error)
	GetRecord(context.Context, *GetRecordRequest) (*GetRecordResponse, error)
	SearchRecords(context.Context, *SearchRequest) (*SearchResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("RunBatch", CatalogServer.RunBatch),
		unary("GetRecord", CatalogServer.GetRecord),
		unary("SearchRecords", CatalogServer.SearchRecords),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "searchlib/catalog",
}

func Register(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](name string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(CatalogServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the catalog service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) RunBatch(ctx context.Context, in *RunBatchRequest, opts ...grpc.CallOption) (*RunBatchResponse, error) {
	out := new(RunBatchResponse)
	return out, c.invoke(ctx, "RunBatch", in, out, opts)
}

func (c *Client) GetRecord(ctx context.Context, in *GetRecordRequest, opts ...grpc.CallOption) (*GetRecordResponse, error) {
	out := new(GetRecordResponse)
	return out, c.invoke(ctx, "GetRecord", in, out, opts)
}

func (c *Client) SearchRecords(ctx context.Context, in *SearchRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	return out, c.invoke(ctx, "SearchRecords", in, out, opts)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype("json")}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
