package mailbox

import (
	"strings"
	"testing"
)

const plainMessage = "From: sales@techcorp.example\r\n" +
	"To: procurement@buyer.example\r\n" +
	"Subject: Re: RFP Invitation - Ref:a1b2c3d4e5f6a1b2c3d4e5f6\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"We can supply for $24,000, delivery in 7 days, 1 year warranty.\r\n"

const multipartMessage = "From: sales@techcorp.example\r\n" +
	"Subject: Re: RFP Invitation - Ref:a1b2c3d4e5f6a1b2c3d4e5f6\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Plain offer: $24,000 in 7 days.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>HTML offer: <b>$24,000</b> in 7 days.</p></body></html>\r\n" +
	"--BOUNDARY--\r\n"

const htmlOnlyMessage = "From: sales@techcorp.example\r\n" +
	"Subject: Re: RFP Invitation - Ref:a1b2c3d4e5f6a1b2c3d4e5f6\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><head><style>p{color:red}</style></head>" +
	"<body><p>Offer: <b>$24,000</b>, 7 days, 1 year warranty.</p>" +
	"<script>alert('x')</script></body></html>\r\n"

func TestExtractBody_Plain(t *testing.T) {
	text, err := extractBody(strings.NewReader(plainMessage))
	if err != nil {
		t.Fatalf("extractBody failed: %v", err)
	}
	if !strings.Contains(text, "$24,000") {
		t.Errorf("text = %q", text)
	}
}

func TestExtractBody_PrefersPlainOverHTML(t *testing.T) {
	text, err := extractBody(strings.NewReader(multipartMessage))
	if err != nil {
		t.Fatalf("extractBody failed: %v", err)
	}
	if !strings.HasPrefix(text, "Plain offer") {
		t.Errorf("expected the text/plain part, got %q", text)
	}
}

func TestExtractBody_HTMLFallback(t *testing.T) {
	text, err := extractBody(strings.NewReader(htmlOnlyMessage))
	if err != nil {
		t.Fatalf("extractBody failed: %v", err)
	}
	if !strings.Contains(text, "$24,000") {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Errorf("script/style leaked into text: %q", text)
	}
}

func TestHTMLToText(t *testing.T) {
	text := htmlToText("<p>We offer <b>fast</b> delivery.</p><script>x()</script>")
	if !strings.Contains(text, "fast") || strings.Contains(text, "x()") {
		t.Errorf("htmlToText = %q", text)
	}
}
