package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The service carries google.protobuf.Struct messages both ways so no
// generated stubs are needed.
const (
	ServiceName       = "salesreport.ReportService"
	listReportsMethod = "/" + ServiceName + "/ListReports"
	runReportMethod   = "/" + ServiceName + "/RunReport"
)

// ReportServiceServer is the server API for ReportService.
type ReportServiceServer interface {
	// ListReports returns {reports: [name...]}
	ListReports(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// RunReport takes {name} and returns {report, columns: [...], rows: [[...]...]}
	RunReport(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterReportServiceServer(s grpc.ServiceRegistrar, srv ReportServiceServer) {
	s.RegisterService(&ReportServiceDesc, srv)
}

var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListReports",
			Handler:    listReportsHandler,
		},
		{
			MethodName: "RunReport",
			Handler:    runReportHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salesreport/report_service.proto",
}

func listReportsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).ListReports(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listReportsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).ListReports(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func runReportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).RunReport(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: runReportMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).RunReport(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls ReportService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListReports(ctx context.Context, opts ...grpc.CallOption) ([]string, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listReportsMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	list := out.GetFields()["reports"].GetListValue().GetValues()
	names := make([]string, len(list))
	for i, v := range list {
		names[i] = v.GetStringValue()
	}
	return names, nil
}

// RunReport returns the raw response struct for the named report.
func (c *Client) RunReport(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, runReportMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
