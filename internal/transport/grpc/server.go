package grpc

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"rulemerge/internal/logging"
	"rulemerge/internal/registry"
	"rulemerge/internal/rule"
)

const maxHostLen = 2048

type Server struct {
	holder *registry.Holder
}

var _ RuleSetServer = (*Server)(nil)

func NewServer(holder *registry.Holder) *Server {
	return &Server{holder: holder}
}

func (s *Server) snapshot() (*registry.Snapshot, error) {
	snap := s.holder.Get()
	if snap == nil {
		return nil, status.Error(codes.Unavailable, "rule sets not built yet")
	}
	return snap, nil
}

func (s *Server) ruleSet(name string) (*registry.Snapshot, *registry.RuleSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, status.Error(codes.InvalidArgument, "rule set name is required")
	}
	snap, err := s.snapshot()
	if err != nil {
		return nil, nil, err
	}
	rs, ok := snap.Get(name)
	if !ok {
		return nil, nil, status.Errorf(codes.NotFound, "rule set %q not found", name)
	}
	return snap, rs, nil
}

func (s *Server) ListRuleSets(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	items := make([]any, 0, snap.Len())
	for _, name := range snap.Names() {
		rs, _ := snap.Get(name)
		items = append(items, summary(rs))
	}
	return newStruct(map[string]any{
		"snapshot":  snap.ID,
		"built_at":  snap.BuiltAt.Format(time.RFC3339),
		"rule_sets": items,
	})
}

func (s *Server) GetRuleSet(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	snap, rs, err := s.ruleSet(req.GetValue())
	if err != nil {
		return nil, err
	}

	res := rs.Result
	entries := make([]any, len(res.Entries))
	for i, e := range res.Entries {
		entries[i] = e
	}
	sources := make([]any, 0, len(res.Sources))
	for _, src := range res.Sources {
		m := map[string]any{
			"url":      src.URL,
			"ok":       src.OK(),
			"lines":    src.Lines,
			"attempts": src.Attempts,
		}
		if src.Err != nil {
			m["error"] = src.Err.Error()
		}
		sources = append(sources, m)
	}

	m := summary(rs)
	m["snapshot"] = snap.ID
	m["entries"] = entries
	m["sources"] = sources
	m["stats"] = map[string]any{
		"raw_lines":  res.Stats.RawLines,
		"normalized": res.Stats.Normalized,
		"excluded":   res.Stats.Excluded,
		"unique":     res.Stats.Unique,
		"entries":    res.Stats.Entries,
	}
	return newStruct(m)
}

func (s *Server) Match(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	rawHost := strings.TrimSpace(fields["host"].GetStringValue())
	if rawHost == "" {
		return nil, status.Error(codes.InvalidArgument, "host is required")
	}
	if len(rawHost) > maxHostLen {
		return nil, status.Error(codes.InvalidArgument, "host is too long")
	}

	host, err := rule.NormalizeHost(rawHost)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid host: %v", err)
	}

	_, rs, err := s.ruleSet(fields["rule_set"].GetStringValue())
	if err != nil {
		return nil, err
	}

	entry, matched := rs.Match(host)
	return newStruct(map[string]any{
		"rule_set": rs.Name(),
		"host":     host,
		"matched":  matched,
		"entry":    entry,
	})
}

func summary(rs *registry.RuleSet) map[string]any {
	res := rs.Result
	m := map[string]any{
		"name":           res.Category,
		"count":          res.Count(),
		"failed_sources": res.FailedSources(),
	}
	if !res.GeneratedAt.IsZero() {
		m["updated"] = res.GeneratedAt.Format(time.RFC3339)
	}
	if res.Err != nil {
		m["error"] = res.Err.Error()
	}
	return m
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return st, nil
}

// NewGRPCServer builds a server with the rule set, health and reflection
// services registered. Health reports SERVING once the holder has a snapshot.
func NewGRPCServer(holder *registry.Holder) *grpc.Server {
	s := grpc.NewServer()
	RegisterRuleSetServer(s, NewServer(holder))

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	markServing := func(*registry.Snapshot) {
		hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	holder.OnSet(markServing)
	if holder.Ready() {
		markServing(holder.Get())
	}
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s
}

// RunGRPCServer serves gRPC on lis and shuts down gracefully when the
// context is canceled.
func RunGRPCServer(ctx context.Context, lis net.Listener, holder *registry.Holder) error {
	log := logging.GetLogger("grpc")

	s := NewGRPCServer(holder)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC server listening")
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
