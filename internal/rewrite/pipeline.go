// Package rewrite mirrors a tree of markup entry points into an output tree,
// replacing every reference into another package with a lookup placeholder.
//
// Relative import links are followed and their targets mirrored as well, so the
// output keeps the local file graph intact. Inline scripts are moved into a
// sibling .js file referenced by one placeholder appended at the end of the
// document. The extracted script therefore runs after all other document
// content, not at its original position.
package rewrite

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
	"github.com/morozRed/wcm/internal/fileutil"
	"github.com/morozRed/wcm/internal/ignore"
	"github.com/morozRed/wcm/internal/markup"
)

// Options configures a Pipeline.
type Options struct {
	Logger *log.Logger
	// FollowScripts also mirrors the targets of relative script sources.
	// Only import links are followed by default.
	FollowScripts bool
	// LogHandledErrors logs each handled issue as a warning when set.
	LogHandledErrors bool
	// Ignore filters entries during ProcessDir. Nil applies ignore.DefaultRules.
	Ignore *ignore.Matcher
}

// Result summarizes a run.
type Result struct {
	Visited []string `json:"visited"`
	Writes  []string `json:"writes"`
	Scripts []string `json:"scripts"`
	Issues  []Issue  `json:"issues"`
}

// Pipeline rewrites markup trees. It holds no per-run state and can be reused.
type Pipeline struct {
	opts   Options
	logger *log.Logger
}

func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Ignore == nil {
		opts.Ignore = ignore.NewMatcher(nil)
	}
	return &Pipeline{opts: opts, logger: logger}
}

// Run expands entryGlobs relative to projectRoot and processes every match.
func (p *Pipeline) Run(ctx context.Context, entryGlobs []string, projectRoot, outputRoot string) (*Result, error) {
	s := p.NewSession()
	if err := s.Run(ctx, entryGlobs, projectRoot, outputRoot); err != nil {
		return nil, err
	}
	return s.Result(), nil
}

// Session is the state of one run: the visited set plus everything recorded so far.
type Session struct {
	pipeline *Pipeline
	visited  *Visited

	mu      sync.Mutex
	writes  []string
	claimed map[string]bool
	scripts []string
	issues  []Issue
}

// NewSession starts a run with an empty visited set.
func (p *Pipeline) NewSession() *Session {
	return &Session{
		pipeline: p,
		visited:  NewVisited(),
		claimed:  make(map[string]bool),
	}
}

func (s *Session) Visited() *Visited {
	return s.visited
}

// Result returns a snapshot of what the session recorded.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Result{
		Visited: s.visited.Paths(),
		Writes:  append([]string(nil), s.writes...),
		Scripts: append([]string(nil), s.scripts...),
		Issues:  append([]Issue(nil), s.issues...),
	}
}

// Run processes every file matched by entryGlobs within projectRoot.
func (s *Session) Run(ctx context.Context, entryGlobs []string, projectRoot, outputRoot string) error {
	logger := s.pipeline.logger
	for _, pattern := range entryGlobs {
		matches, err := ExpandEntry(projectRoot, pattern)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			logger.Warn("entry pattern matched no files", "pattern", pattern, "root", projectRoot)
			continue
		}
		for _, rel := range matches {
			if err := s.ProcessFile(ctx, projectRoot, outputRoot, rel); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExpandEntry returns the files under root matching pattern as sorted,
// root-relative native paths. "**" matches any number of directories.
func ExpandEntry(root, pattern string) ([]string, error) {
	cleaned := strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(pattern)), "./")
	if cleaned == "" {
		return nil, fmt.Errorf("entry pattern is empty")
	}
	if strings.HasPrefix(cleaned, "/") {
		return nil, fmt.Errorf("entry pattern %q must be relative to the project root", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(root), cleaned, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to expand entry pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	for i, match := range matches {
		matches[i] = filepath.FromSlash(match)
	}
	return matches, nil
}

// ProcessFile mirrors sourceRoot/rel into outputRoot/rel. Markup is rewritten,
// anything else is copied unchanged. A file is processed at most once per session.
func (s *Session) ProcessFile(ctx context.Context, sourceRoot, outputRoot, rel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	root, out, err := resolveRoots(sourceRoot, outputRoot)
	if err != nil {
		return err
	}

	source := filepath.Join(root, rel)
	if !s.visited.Add(source) {
		return nil
	}

	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			s.handled(Issue{File: source, Kind: IssueFileNotFound, Message: "file not found"})
			return nil
		}
		return fmt.Errorf("failed to access %s: %w", source, err)
	}
	if info.IsDir() {
		s.handled(Issue{File: source, Kind: IssueFileNotFound, Message: "reference points at a directory"})
		return nil
	}

	dest := filepath.Join(out, rel)
	if err := fileutil.EnsureDir(filepath.Dir(dest)); err != nil {
		return err
	}

	if !markup.IsMarkup(rel) {
		s.pipeline.logger.Debug("copying asset", "file", rel)
		if err := fileutil.CopyFile(source, dest); err != nil {
			return fmt.Errorf("failed to copy %s: %w", source, err)
		}
		s.recordWrite(dest)
		return nil
	}
	return s.transform(ctx, root, out, rel)
}

// ProcessDir submits every file below sourceRoot/rel to ProcessFile, one at a
// time and in name order. It returns once the whole subtree is done. The output
// root and ignored paths are skipped.
func (s *Session) ProcessDir(ctx context.Context, sourceRoot, outputRoot, rel string) error {
	root, out, err := resolveRoots(sourceRoot, outputRoot)
	if err != nil {
		return err
	}

	dir := filepath.Join(root, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		child := filepath.Join(rel, entry.Name())
		if entry.Type()&fs.ModeSymlink != 0 {
			continue
		}
		if entry.IsDir() {
			if filepath.Join(root, child) == out || s.pipeline.opts.Ignore.ShouldIgnore(child, true) {
				continue
			}
			if err := s.ProcessDir(ctx, root, out, child); err != nil {
				return err
			}
			continue
		}
		if s.pipeline.opts.Ignore.ShouldIgnore(child, false) {
			continue
		}
		if err := s.ProcessFile(ctx, root, out, child); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) transform(ctx context.Context, root, out, rel string) error {
	logger := s.pipeline.logger
	source := filepath.Join(root, rel)

	content, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}
	doc, err := markup.Parse(ctx, content)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", source, err)
	}
	if doc.HasErrors() {
		logger.Debug("markup parsed with recovered errors", "file", rel)
	}

	for _, link := range doc.Select("link") {
		if !isImportLink(link) || link.HasAttr(markup.IgnoreAttribute) {
			continue
		}
		if err := s.rewriteLink(ctx, doc, link, root, out, rel); err != nil {
			return err
		}
	}

	var fragments []string
	for _, script := range doc.Select("script") {
		if script.HasAttr(markup.IgnoreAttribute) {
			continue
		}
		if strings.TrimSpace(script.Text) != "" {
			if err := doc.Remove(script); err != nil {
				return fmt.Errorf("failed to extract inline script from %s: %w", source, err)
			}
			fragments = append(fragments, script.Text)
			continue
		}
		if err := s.rewriteScript(ctx, doc, script, root, out, rel); err != nil {
			return err
		}
	}

	if len(fragments) > 0 {
		name, err := s.extractScripts(ctx, root, out, rel, fragments)
		if err != nil {
			return err
		}
		doc.Append(markup.ScriptPlaceholder("", filepath.Base(name)))
	}

	dest := filepath.Join(out, rel)
	if err := fileutil.WriteFile(dest, doc.Render()); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	s.recordWrite(dest)
	logger.Debug("rewrote markup", "file", rel, "inline_scripts", len(fragments))
	return nil
}

func isImportLink(link *markup.Element) bool {
	rel, ok := link.Attr("rel")
	return ok && strings.EqualFold(strings.TrimSpace(rel), "import")
}

func (s *Session) rewriteLink(ctx context.Context, doc *markup.Document, link *markup.Element, root, out, rel string) error {
	href, _ := link.Attr("href")
	ref, err := parseReference(href)
	if err != nil {
		s.ambiguous(root, rel, href, err)
		return nil
	}
	if ref.remote {
		return nil
	}

	target := resolveTarget(root, rel, ref.path)
	if isWithin(root, target) {
		targetRel, err := filepath.Rel(root, target)
		if err != nil {
			s.ambiguous(root, rel, href, err)
			return nil
		}
		return s.ProcessFile(ctx, root, out, targetRel)
	}

	name, lookup, err := ParseExternal(ref.raw)
	if err != nil {
		s.malformed(root, rel, href, err)
		return nil
	}
	relation, _ := link.Attr("rel")
	return doc.Replace(link, markup.LinkPlaceholder(relation, name, lookup))
}

func (s *Session) rewriteScript(ctx context.Context, doc *markup.Document, script *markup.Element, root, out, rel string) error {
	src, ok := script.Attr("src")
	if !ok {
		s.handled(Issue{
			File:    filepath.Join(root, rel),
			Kind:    IssueAmbiguousRelativity,
			Message: "script has neither a body nor a src attribute",
		})
		return nil
	}
	ref, err := parseReference(src)
	if err != nil {
		s.ambiguous(root, rel, src, err)
		return nil
	}
	if ref.remote {
		return nil
	}

	target := resolveTarget(root, rel, ref.path)
	if isWithin(root, target) {
		if err := doc.Replace(script, markup.ScriptPlaceholder("", src)); err != nil {
			return err
		}
		if !s.pipeline.opts.FollowScripts {
			return nil
		}
		targetRel, err := filepath.Rel(root, target)
		if err != nil {
			s.ambiguous(root, rel, src, err)
			return nil
		}
		return s.ProcessFile(ctx, root, out, targetRel)
	}

	name, lookup, err := ParseExternal(ref.raw)
	if err != nil {
		s.malformed(root, rel, src, err)
		return nil
	}
	return doc.Replace(script, markup.ScriptPlaceholder(name, lookup))
}

// extractScripts writes the concatenated fragments next to the mirrored markup
// file and returns the script's root-relative path.
func (s *Session) extractScripts(ctx context.Context, root, out, rel string, fragments []string) (string, error) {
	for i, fragment := range fragments {
		broken, err := markup.ScriptHasSyntaxErrors(ctx, fragment)
		if err != nil {
			return "", err
		}
		if broken {
			s.handled(Issue{
				File:    filepath.Join(root, rel),
				Kind:    IssueScriptSyntax,
				Message: fmt.Sprintf("inline script %d has syntax errors", i+1),
			})
		}
	}

	name := s.claimScriptName(root, out, rel)
	dest := filepath.Join(out, name)
	if err := fileutil.WriteFile(dest, []byte(strings.Join(fragments, ""))); err != nil {
		return "", fmt.Errorf("failed to write extracted script %s: %w", dest, err)
	}
	s.recordWrite(dest)

	s.mu.Lock()
	s.scripts = append(s.scripts, dest)
	s.mu.Unlock()
	return name, nil
}

// claimScriptName picks <base>.js, then <base>_1.js, <base>_2.js and so on,
// skipping names that exist in the source tree or were already written.
func (s *Session) claimScriptName(root, out, rel string) string {
	base := strings.TrimSuffix(rel, filepath.Ext(rel))
	name := base + ".js"

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 1; fileutil.Exists(filepath.Join(root, name)) || s.claimed[filepath.Join(out, name)]; i++ {
		name = fmt.Sprintf("%s_%d.js", base, i)
	}
	s.claimed[filepath.Join(out, name)] = true
	return name
}

func (s *Session) recordWrite(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, path)
	s.claimed[path] = true
}

func (s *Session) ambiguous(root, rel, ref string, err error) {
	s.handled(Issue{
		File:    filepath.Join(root, rel),
		Kind:    IssueAmbiguousRelativity,
		Message: fmt.Sprintf("unable to determine relativity of %q: %v", ref, err),
	})
}

func (s *Session) malformed(root, rel, ref string, err error) {
	s.handled(Issue{
		File:    filepath.Join(root, rel),
		Kind:    IssueMalformedReference,
		Message: fmt.Sprintf("unable to split package reference %q: %v", ref, err),
	})
}

func (s *Session) handled(issue Issue) {
	s.mu.Lock()
	s.issues = append(s.issues, issue)
	s.mu.Unlock()

	if s.pipeline.opts.LogHandledErrors {
		s.pipeline.logger.Warn(issue.Message, "kind", issue.Kind, "file", issue.File)
	}
}

func resolveRoots(sourceRoot, outputRoot string) (string, string, error) {
	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve source root %q: %w", sourceRoot, err)
	}
	out, err := filepath.Abs(outputRoot)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve output root %q: %w", outputRoot, err)
	}
	return root, out, nil
}
