package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "rulemerge.v1.RuleSetService"

const (
	listRuleSetsMethod = "/" + ServiceName + "/ListRuleSets"
	getRuleSetMethod   = "/" + ServiceName + "/GetRuleSet"
	matchMethod        = "/" + ServiceName + "/Match"
)

// RuleSetServer is the server API for the rule set service. Messages are
// protobuf well-known types so no generated code is required.
type RuleSetServer interface {
	ListRuleSets(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetRuleSet(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Match(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterRuleSetServer(s grpc.ServiceRegistrar, srv RuleSetServer) {
	s.RegisterService(&ruleSetServiceDesc, srv)
}

var ruleSetServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RuleSetServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListRuleSets", Handler: listRuleSetsHandler},
		{MethodName: "GetRuleSet", Handler: getRuleSetHandler},
		{MethodName: "Match", Handler: matchHandler},
	},
	Streams: []grpc.StreamDesc{},
	// No Metadata: there is no .proto descriptor to register, so reflection
	// lists the service but cannot describe its methods.
}

func listRuleSetsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RuleSetServer).ListRuleSets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listRuleSetsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RuleSetServer).ListRuleSets(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getRuleSetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RuleSetServer).GetRuleSet(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getRuleSetMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RuleSetServer).GetRuleSet(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func matchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RuleSetServer).Match(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: matchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RuleSetServer).Match(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client is the client API for the rule set service.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) ListRuleSets(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listRuleSetsMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetRuleSet(ctx context.Context, name string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getRuleSetMethod, wrapperspb.String(name), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Match(ctx context.Context, ruleSet, host string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"rule_set": ruleSet, "host": host})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, matchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
