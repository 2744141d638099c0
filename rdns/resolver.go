package rdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"
)

// ErrNoPTR indica que o IP não tem nome reverso publicado.
var ErrNoPTR = errors.New("rdns: no PTR record")

// Resolver resolve um IP para o primeiro nome PTR (sem ponto final).
// Pode ser lento; o chamador controla o prazo pelo ctx.
type Resolver interface {
	LookupAddr(ctx context.Context, ip string) (string, error)
}

// ResolverFunc adapta uma função para Resolver.
type ResolverFunc func(ctx context.Context, ip string) (string, error)

func (f ResolverFunc) LookupAddr(ctx context.Context, ip string) (string, error) {
	return f(ctx, ip)
}

// SystemResolver usa o resolver do sistema (net.Resolver).
type SystemResolver struct {
	Resolver *net.Resolver
}

func (s SystemResolver) LookupAddr(ctx context.Context, ip string) (string, error) {
	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	names, err := r.LookupAddr(ctx, ip)
	if err != nil {
		return "", err
	}
	return firstName(names)
}

// PTRResolver consulta servidores DNS específicos com github.com/miekg/dns.
// Tenta os servidores em ordem; resposta truncada é repetida via TCP.
type PTRResolver struct {
	servers []string
	udp     *dns.Client
	tcp     *dns.Client
	limiter *rate.Limiter
}

type PTROption func(*PTRResolver)

// WithQueryTimeout limita cada troca com um servidor.
func WithQueryTimeout(d time.Duration) PTROption {
	return func(p *PTRResolver) {
		p.udp.Timeout = d
		p.tcp.Timeout = d
	}
}

// WithQueryRate limita as consultas enviadas aos servidores (qps <= 0 = sem limite).
func WithQueryRate(qps float64, burst int) PTROption {
	return func(p *PTRResolver) {
		if qps <= 0 {
			p.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// NewPTRResolver aceita "host" ou "host:porta"; sem porta usa 53.
func NewPTRResolver(servers []string, opts ...PTROption) *PTRResolver {
	p := &PTRResolver{
		udp: &dns.Client{Net: "udp", Timeout: 2 * time.Second},
		tcp: &dns.Client{Net: "tcp", Timeout: 2 * time.Second},
	}
	for _, s := range servers {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		p.servers = append(p.servers, s)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PTRResolver) Servers() []string { return append([]string(nil), p.servers...) }

func (p *PTRResolver) LookupAddr(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("rdns: reverse name for %q: %w", ip, err)
	}
	if len(p.servers) == 0 {
		return "", errors.New("rdns: no DNS servers configured")
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rdns: query budget: %w", err)
		}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)

	var lastErr error
	for _, server := range p.servers {
		resp, err := p.exchange(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("rdns: %s: %w", server, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return "", ErrNoPTR
		default:
			lastErr = fmt.Errorf("rdns: %s answered %s", server, dns.RcodeToString[resp.Rcode])
			continue
		}

		var names []string
		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				names = append(names, ptr.Ptr)
			}
		}
		return firstName(names)
	}
	return "", lastErr
}

func (p *PTRResolver) exchange(ctx context.Context, msg *dns.Msg, server string) (*dns.Msg, error) {
	resp, _, err := p.udp.ExchangeContext(ctx, msg, server)
	if err == nil && resp != nil && resp.Truncated {
		resp, _, err = p.tcp.ExchangeContext(ctx, msg, server)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func firstName(names []string) (string, error) {
	for _, n := range names {
		if n = strings.TrimSuffix(strings.TrimSpace(n), "."); n != "" {
			return n, nil
		}
	}
	return "", ErrNoPTR
}
