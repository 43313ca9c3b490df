package updater

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"cfupdater/ddns"
)

type fakeSource struct {
	ip    netip.Addr
	err   error
	calls int
}

func (s *fakeSource) Lookup(_ context.Context) (netip.Addr, error) {
	s.calls++
	return s.ip, s.err
}

func (s *fakeSource) Typename() string { return "fake" }

type fakeProvider struct {
	record   ddns.Record
	findErr  error
	writeErr error
	finds    int
	writes   int
	written  ddns.Record
}

func (p *fakeProvider) FindRecord(_ context.Context, _ string) (ddns.Record, error) {
	p.finds++
	if p.findErr != nil {
		return ddns.Record{}, p.findErr
	}
	return p.record, nil
}

func (p *fakeProvider) WriteRecord(_ context.Context, r ddns.Record) (ddns.Record, error) {
	p.writes++
	if p.writeErr != nil {
		return ddns.Record{}, p.writeErr
	}
	p.written = r
	if r.ID == "" {
		r.ID = "created1"
	}
	return r, nil
}

type fakeVerifier struct {
	result ddns.VerifyOutcome
	calls  int
}

func (v *fakeVerifier) Verify(_ context.Context, _ string, _ netip.Addr) ddns.VerifyOutcome {
	v.calls++
	return v.result
}

const testDomain = "host.example.com"

var testIP = netip.MustParseAddr("203.0.113.7")

func testUpdater(source *fakeSource, provider *fakeProvider, verifier *fakeVerifier) *Updater {
	return &Updater{
		Source:   source,
		Provider: provider,
		Verifier: verifier,
		Record:   testDomain,
	}
}

func TestRunUpdatesExistingRecord(t *testing.T) {
	source := &fakeSource{ip: testIP}
	provider := &fakeProvider{record: ddns.Record{ID: "rec1", Type: "A", Name: testDomain, Content: "198.51.100.1"}}
	verifier := &fakeVerifier{result: ddns.VerifyMatched}

	out, err := testUpdater(source, provider, verifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !out.Applied || out.Created {
		t.Errorf("expected update of existing record, got %+v", out)
	}
	if out.RecordID != "rec1" {
		t.Errorf("expected record id rec1, got %q", out.RecordID)
	}
	if provider.written.ID != "rec1" || provider.written.Content != testIP.String() {
		t.Errorf("unexpected written record: %+v", provider.written)
	}
	if provider.written.Type != "A" || provider.written.Name != testDomain {
		t.Errorf("unexpected written record: %+v", provider.written)
	}
	if out.Verify != ddns.VerifyMatched {
		t.Errorf("expected verify matched, got %s", out.Verify)
	}
}

func TestRunCreatesMissingRecord(t *testing.T) {
	source := &fakeSource{ip: testIP}
	provider := &fakeProvider{findErr: ddns.ErrRecordNotFound}
	verifier := &fakeVerifier{result: ddns.VerifyMatched}

	out, err := testUpdater(source, provider, verifier).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !out.Created || !out.Applied {
		t.Errorf("expected created record, got %+v", out)
	}
	if provider.written.ID != "" {
		t.Errorf("create must not carry a record id, got %q", provider.written.ID)
	}
	if out.RecordID != "created1" {
		t.Errorf("expected provider-assigned id, got %q", out.RecordID)
	}
}

func TestRunDiscoveryFailureShortCircuits(t *testing.T) {
	source := &fakeSource{err: errors.New("endpoint unreachable")}
	provider := &fakeProvider{}
	verifier := &fakeVerifier{}

	_, err := testUpdater(source, provider, verifier).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when discovery fails")
	}

	if provider.finds != 0 || provider.writes != 0 {
		t.Errorf("expected no provider calls, got finds=%d writes=%d", provider.finds, provider.writes)
	}
	if verifier.calls != 0 {
		t.Errorf("expected no verify calls, got %d", verifier.calls)
	}
}

func TestRunLookupFailureAborts(t *testing.T) {
	source := &fakeSource{ip: testIP}
	provider := &fakeProvider{findErr: errors.New("listing failed")}
	verifier := &fakeVerifier{}

	_, err := testUpdater(source, provider, verifier).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when lookup fails")
	}

	if provider.writes != 0 {
		t.Errorf("ambiguous lookup must not write, got %d writes", provider.writes)
	}
}

func TestRunWriteFailureSkipsVerify(t *testing.T) {
	source := &fakeSource{ip: testIP}
	provider := &fakeProvider{findErr: ddns.ErrRecordNotFound, writeErr: errors.New("quota exceeded")}
	verifier := &fakeVerifier{}

	out, err := testUpdater(source, provider, verifier).Run(context.Background())
	if err == nil {
		t.Fatal("expected error when write fails")
	}

	if out.Applied {
		t.Error("failed write must not report applied")
	}
	if verifier.calls != 0 {
		t.Errorf("expected no verify calls, got %d", verifier.calls)
	}
}

func TestRunVerifyMismatchStillSucceeds(t *testing.T) {
	for _, result := range []ddns.VerifyOutcome{ddns.VerifyMismatched, ddns.VerifyNoResolution} {
		t.Run(result.String(), func(t *testing.T) {
			source := &fakeSource{ip: testIP}
			provider := &fakeProvider{record: ddns.Record{ID: "rec1", Type: "A", Name: testDomain}}
			verifier := &fakeVerifier{result: result}

			out, err := testUpdater(source, provider, verifier).Run(context.Background())
			if err != nil {
				t.Fatalf("verification outcome must not fail the cycle: %v", err)
			}
			if !out.Applied {
				t.Error("expected applied cycle")
			}
			if out.Verify != result {
				t.Errorf("expected verify %s, got %s", result, out.Verify)
			}
		})
	}
}
