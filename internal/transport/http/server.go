package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"rulemerge/internal/logging"
	"rulemerge/internal/registry"
	grpcTransport "rulemerge/internal/transport/grpc"
)

const documentContentType = "application/yaml; charset=utf-8"

type gateway struct {
	mux       *runtime.ServeMux
	marshaler runtime.Marshaler
	srv       *grpcTransport.Server
	holder    *registry.Holder
}

// NewGatewayMux exposes the rule set service as JSON over HTTP, calling
// the gRPC implementation in-process.
func NewGatewayMux(holder *registry.Holder) (*runtime.ServeMux, error) {
	marshaler := &runtime.JSONPb{
		MarshalOptions:   protojson.MarshalOptions{EmitUnpopulated: true},
		UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
	}
	gw := &gateway{
		mux:       runtime.NewServeMux(runtime.WithMarshalerOption(runtime.MIMEWildcard, marshaler)),
		marshaler: marshaler,
		srv:       grpcTransport.NewServer(holder),
		holder:    holder,
	}

	routes := []struct {
		pattern string
		h       runtime.HandlerFunc
	}{
		{"/api/v1/rulesets", gw.listRuleSets},
		{"/api/v1/rulesets/{name}", gw.getRuleSet},
		{"/api/v1/rulesets/{name}/document", gw.document},
		{"/api/v1/rulesets/{name}/match", gw.match},
	}
	for _, rt := range routes {
		if err := gw.mux.HandlePath(http.MethodGet, rt.pattern, rt.h); err != nil {
			return nil, err
		}
	}
	return gw.mux, nil
}

func (gw *gateway) listRuleSets(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := gw.srv.ListRuleSets(r.Context(), &emptypb.Empty{})
	gw.respond(w, r, resp, err)
}

func (gw *gateway) getRuleSet(w http.ResponseWriter, r *http.Request, params map[string]string) {
	resp, err := gw.srv.GetRuleSet(r.Context(), wrapperspb.String(params["name"]))
	gw.respond(w, r, resp, err)
}

func (gw *gateway) match(w http.ResponseWriter, r *http.Request, params map[string]string) {
	req, err := structpb.NewStruct(map[string]any{
		"rule_set": params["name"],
		"host":     r.URL.Query().Get("host"),
	})
	if err != nil {
		gw.respond(w, r, nil, status.Error(codes.InvalidArgument, err.Error()))
		return
	}
	resp, err := gw.srv.Match(r.Context(), req)
	gw.respond(w, r, resp, err)
}

func (gw *gateway) document(w http.ResponseWriter, r *http.Request, params map[string]string) {
	// GetRuleSet performs the name and readiness checks.
	if _, err := gw.srv.GetRuleSet(r.Context(), wrapperspb.String(params["name"])); err != nil {
		gw.respond(w, r, nil, err)
		return
	}
	rs, ok := gw.holder.Get().Get(params["name"])
	if !ok || len(rs.Document) == 0 {
		gw.respond(w, r, nil, status.Errorf(codes.NotFound, "no document for rule set %q", params["name"]))
		return
	}

	w.Header().Set("Content-Type", documentContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rs.Document)
}

func (gw *gateway) respond(w http.ResponseWriter, r *http.Request, resp proto.Message, err error) {
	if err != nil {
		runtime.HTTPError(r.Context(), gw.mux, gw.marshaler, w, r, err)
		return
	}
	buf, err := gw.marshaler.Marshal(resp)
	if err != nil {
		runtime.HTTPError(r.Context(), gw.mux, gw.marshaler, w, r, status.Error(codes.Internal, err.Error()))
		return
	}
	w.Header().Set("Content-Type", gw.marshaler.ContentType(resp))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
}

// NewHandler returns the gateway together with liveness and readiness probes.
func NewHandler(holder *registry.Holder) (http.Handler, error) {
	gwMux, err := NewGatewayMux(holder)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/", gwMux)

	// /healthz: liveness
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// /readyz: ready once the first snapshot is published
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !holder.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return mux, nil
}

// RunHTTPServer serves the gateway and probes on lis and shuts down
// gracefully when the context is canceled.
func RunHTTPServer(ctx context.Context, lis net.Listener, holder *registry.Holder) error {
	log := logging.GetLogger("http")

	handler, err := NewHandler(holder)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown of the HTTP server when the parent context is canceled
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", lis.Addr().String()).Msg("HTTP server listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
