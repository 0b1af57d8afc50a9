package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"github.com/kevinelliott/stackpick/pkg/catalog"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "stackpick.v1.Catalog"

// Request and response messages.

type ListAppsRequest struct{}

type ListAppsResponse struct {
	Apps        []catalog.App `json:"apps"`
	Version     string        `json:"version"`
	LastUpdated time.Time     `json:"last_updated"`
}

type GetAppRequest struct {
	ID int `json:"id"`
}

type GetAppResponse struct {
	App catalog.App `json:"app"`
}

type SearchAppsRequest struct {
	Query string `json:"query"`
}

type SearchAppsResponse struct {
	Apps []catalog.App `json:"apps"`
}

type RefreshCatalogRequest struct{}

type RefreshCatalogResponse struct {
	Version string `json:"version"`
	Count   int    `json:"count"`
}

type WatchCatalogRequest struct{}

// CatalogEvent is streamed to watchers after the catalog changes.
type CatalogEvent struct {
	Version   string    `json:"version"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

// CatalogServer is the server API for the catalog service.
type CatalogServer interface {
	ListApps(context.Context, *ListAppsRequest) (*ListAppsResponse, error)
	GetApp(context.Context, *GetAppRequest) (*GetAppResponse, error)
	SearchApps(context.Context, *SearchAppsRequest) (*SearchAppsResponse, error)
	RefreshCatalog(context.Context, *RefreshCatalogRequest) (*RefreshCatalogResponse, error)
	WatchCatalog(*WatchCatalogRequest, grpc.ServerStream) error
}

func unaryHandler[Req any, Resp any](method string, call func(CatalogServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(CatalogServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchCatalogHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(WatchCatalogRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CatalogServer).WatchCatalog(in, stream)
}

// ServiceDesc describes the catalog service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListApps",
			Handler:    unaryHandler("ListApps", CatalogServer.ListApps),
		},
		{
			MethodName: "GetApp",
			Handler:    unaryHandler("GetApp", CatalogServer.GetApp),
		},
		{
			MethodName: "SearchApps",
			Handler:    unaryHandler("SearchApps", CatalogServer.SearchApps),
		},
		{
			MethodName: "RefreshCatalog",
			Handler:    unaryHandler("RefreshCatalog", CatalogServer.RefreshCatalog),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchCatalog",
			Handler:       watchCatalogHandler,
			ServerStreams: true,
		},
	},
	Metadata: "stackpick/v1/catalog",
}

// Client calls the catalog service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a catalog client.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, grpc.CallContentSubtype(codecName))
}

// ListApps lists every app.
func (c *Client) ListApps(ctx context.Context, in *ListAppsRequest) (*ListAppsResponse, error) {
	out := new(ListAppsResponse)
	if err := c.invoke(ctx, "ListApps", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetApp returns one app.
func (c *Client) GetApp(ctx context.Context, in *GetAppRequest) (*GetAppResponse, error) {
	out := new(GetAppResponse)
	if err := c.invoke(ctx, "GetApp", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchApps searches apps by label and description.
func (c *Client) SearchApps(ctx context.Context, in *SearchAppsRequest) (*SearchAppsResponse, error) {
	out := new(SearchAppsResponse)
	if err := c.invoke(ctx, "SearchApps", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshCatalog refetches the catalog from its source.
func (c *Client) RefreshCatalog(ctx context.Context, in *RefreshCatalogRequest) (*RefreshCatalogResponse, error) {
	out := new(RefreshCatalogResponse)
	if err := c.invoke(ctx, "RefreshCatalog", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CatalogWatcher receives catalog events.
type CatalogWatcher struct {
	stream grpc.ClientStream
}

// Recv blocks for the next event.
func (w *CatalogWatcher) Recv() (*CatalogEvent, error) {
	ev := new(CatalogEvent)
	if err := w.stream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// WatchCatalog opens a stream of catalog events.
func (c *Client) WatchCatalog(ctx context.Context, in *WatchCatalogRequest) (*CatalogWatcher, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], "/"+ServiceName+"/WatchCatalog", grpc.CallContentSubtype(codecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &CatalogWatcher{stream: stream}, nil
}
