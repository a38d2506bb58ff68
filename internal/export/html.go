package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/aatumaykin/tgpurge/internal/purge"
)

// ErrOwnerRequired is returned for HTML exports when no owner name is set.
// HTML pages carry sender names only.
var ErrOwnerRequired = errors.New("selection.owner_name is required for HTML exports")

var (
	messageIDPattern = regexp.MustCompile(`^message(\d+)$`)
	pageNumPattern   = regexp.MustCompile(`^messages(\d*)\.html$`)
)

var htmlDateLayouts = []string{
	"02.01.2006 15:04:05 UTC-07:00",
	"02.01.2006 15:04:05",
}

// htmlParser keeps the sender across pages: a "joined" message continues
// the previous sender's run, even at the top of the next page.
type htmlParser struct {
	opts      Options
	converter *md.Converter
	sender    string
}

func newHTMLParser(opts Options) *htmlParser {
	conv := md.NewConverter("", true, &md.Options{
		EscapeMode:      "disabled",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	})
	return &htmlParser{opts: opts, converter: conv}
}

// LoadHTMLPath reads a single page or every messages*.html page of a
// chat export directory, in page order.
func LoadHTMLPath(path string, opts Options) ([]purge.Message, error) {
	if opts.OwnerName == "" {
		return nil, ErrOwnerRequired
	}

	pages, err := htmlPages(path)
	if err != nil {
		return nil, err
	}

	p := newHTMLParser(opts)
	var messages []purge.Message
	for _, page := range pages {
		f, err := os.Open(page)
		if err != nil {
			return nil, fmt.Errorf("failed to open export page: %w", err)
		}
		batch, err := p.parse(f)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(page), err)
		}
		messages = append(messages, batch...)
	}
	return messages, nil
}

// LoadHTML parses one export page.
func LoadHTML(r io.Reader, opts Options) ([]purge.Message, error) {
	if opts.OwnerName == "" {
		return nil, ErrOwnerRequired
	}
	return newHTMLParser(opts).parse(r)
}

func htmlPages(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat export: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := filepath.Glob(filepath.Join(path, "messages*.html"))
	if err != nil {
		return nil, err
	}
	pages := matches[:0]
	for _, m := range matches {
		if pageNumPattern.MatchString(filepath.Base(m)) {
			pages = append(pages, m)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: no messages*.html in %s", ErrMalformedExport, path)
	}
	slices.SortFunc(pages, func(a, b string) int { return pageNumber(a) - pageNumber(b) })
	return pages, nil
}

// pageNumber orders messages.html, messages2.html, ..., messages10.html.
func pageNumber(path string) int {
	sub := pageNumPattern.FindStringSubmatch(filepath.Base(path))
	if len(sub) < 2 || sub[1] == "" {
		return 1
	}
	n, _ := strconv.Atoi(sub[1])
	return n
}

func (p *htmlParser) parse(r io.Reader) ([]purge.Message, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedExport, err)
	}

	chatName := strings.TrimSpace(doc.Find(".page_header .content .text").First().Text())
	if chatName == "" {
		return nil, fmt.Errorf("%w: page has no chat header", ErrMalformedExport)
	}

	var (
		messages []purge.Message
		parseErr error
	)

	doc.Find("div.message").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if sel.HasClass("service") {
			return true
		}

		idAttr, _ := sel.Attr("id")
		sub := messageIDPattern.FindStringSubmatch(idAttr)
		if sub == nil {
			parseErr = fmt.Errorf("%w: message without id in %q", ErrMalformedExport, chatName)
			return false
		}
		id, _ := strconv.Atoi(sub[1])

		body := sel.ChildrenFiltered(".body").First()
		if from := strings.TrimSpace(body.ChildrenFiltered(".from_name").First().Text()); from != "" {
			p.sender = from
		} else if !sel.HasClass("joined") {
			p.sender = ""
		}

		title, _ := body.ChildrenFiltered(".date").First().Attr("title")
		date, err := p.parseDate(title)
		if err != nil {
			parseErr = fmt.Errorf("%w: chat %q message %d: %v", ErrMalformedExport, chatName, id, err)
			return false
		}

		m := purge.Message{
			ChatName: chatName,
			ChatType: "unknown",
			ID:       id,
			Date:     date,
			Text:     p.text(body.ChildrenFiltered(".text").First()),
		}
		if p.sender == p.opts.OwnerName {
			m.Origin = purge.OriginOwner
		}
		messages = append(messages, m)
		return true
	})

	if parseErr != nil {
		return nil, parseErr
	}
	return messages, nil
}

func (p *htmlParser) parseDate(title string) (time.Time, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range htmlDateLayouts {
		if t, err := time.ParseInLocation(layout, title, p.opts.location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", title)
}

func (p *htmlParser) text(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(p.converter.Convert(sel))
}
