package resource

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/thomasjacksonsantos/querysync"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (w widget) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.Name, validation.Required, validation.Length(1, 40)),
	)
}

type call struct {
	Method, Path string
	Body         any
}

// fakeDoer answers by "METHOD path" with canned JSON bodies or errors.
type fakeDoer struct {
	mu      sync.Mutex
	calls   []call
	replies map[string]string
	errs    map[string]error
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{replies: map[string]string{}, errs: map[string]error{}}
}

func (d *fakeDoer) reply(route, body string) { d.mu.Lock(); d.replies[route] = body; d.mu.Unlock() }

func (d *fakeDoer) Do(_ context.Context, method, path string, body, out any) error {
	route := method + " " + path
	d.mu.Lock()
	d.calls = append(d.calls, call{method, path, body})
	reply, err := d.replies[route], d.errs[route]
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if reply == "" || out == nil {
		return nil
	}
	return json.Unmarshal([]byte(reply), out)
}

func (d *fakeDoer) count(route string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Method+" "+c.Path == route {
			n++
		}
	}
	return n
}

func (d *fakeDoer) total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

var widgets = Definition{
	Name:          "widget",
	ListNamespace: "widgets",
	ItemNamespace: "widget",
	Path:          "/widgets",
}

func newWidgets(t *testing.T, d *fakeDoer, sync *querysync.Client) *Client[widget] {
	t.Helper()
	c, err := New[widget](d, sync, widgets)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func newSync(t *testing.T) *querysync.Client {
	t.Helper()
	c, err := querysync.New(querysync.Options{GCInterval: time.Hour})
	if err != nil {
		t.Fatalf("querysync.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDefinitionValidation(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
		want string
	}{
		{"missing fields", Definition{Name: "x"}, "missing ListNamespace, ItemNamespace, Path"},
		{"shared namespace", Definition{Name: "x", ListNamespace: "x", ItemNamespace: "x", Path: "/x"}, "one namespace"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New[widget](newFakeDoer(), nil, tc.def)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestListBuildsQueryAndDecodesPage(t *testing.T) {
	d := newFakeDoer()
	d.reply("GET /widgets?page=2&pageSize=10&search=ana&status=active",
		`{"data":[{"id":"1","name":"a"}],"currentPage":2,"pageSize":10,"totalRecords":11,"totalPages":2}`)
	c := newWidgets(t, d, nil)

	page, err := c.List(context.Background(), ListParams{Page: 2, PageSize: 10, Search: "ana", Filters: map[string]string{"status": "active"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Data) != 1 || page.TotalRecords != 11 || page.HasNext() {
		t.Fatalf("page = %+v", page)
	}
}

func TestGetUnwrapsEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    widget
		wantErr string
	}{
		{"envelope", `{"isSuccess":true,"statusCode":"200","value":{"id":"7","name":"w"}}`, widget{"7", "w"}, ""},
		{"bare value", `{"id":"7","name":"w"}`, widget{"7", "w"}, ""},
		{"numeric code", `{"isSuccess":false,"statusCode":404,"message":"not here"}`, widget{}, "widget get: not here"},
		{"error list", `{"isSuccess":false,"errors":["a",{"message":"b"}]}`, widget{}, "widget get: a; b"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := newFakeDoer()
			d.reply("GET /widgets/7", tc.body)
			got, err := newWidgets(t, d, nil).Get(context.Background(), "7")
			if tc.wantErr != "" {
				var ee *EnvelopeError
				if !errors.As(err, &ee) || err.Error() != tc.wantErr {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("Get = %+v, %v", got, err)
			}
		})
	}
}

func TestCodeInt(t *testing.T) {
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal([]byte(`{"statusCode":422}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.StatusCode.Int() != 422 {
		t.Fatalf("code = %q", env.StatusCode)
	}
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	d := newFakeDoer()
	_, err := newWidgets(t, d, nil).Create(context.Background(), widget{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if ve.Fields["name"] == "" {
		t.Fatalf("fields = %v", ve.Fields)
	}
	if d.total() != 0 {
		t.Fatalf("invalid value reached the backend")
	}
}

func TestCommandsHitItemPaths(t *testing.T) {
	d := newFakeDoer()
	c := newWidgets(t, d, nil)
	ctx := context.Background()
	if err := c.Activate(ctx, "a/b"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := c.Deactivate(ctx, "7"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := c.Delete(ctx, "7"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, route := range []string{"PATCH /widgets/a%2Fb/activate", "PATCH /widgets/7/deactivate", "DELETE /widgets/7"} {
		if d.count(route) != 1 {
			t.Fatalf("%s not called; calls = %+v", route, d.calls)
		}
	}
	if err := c.Delete(ctx, ""); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("empty id err = %v", err)
	}
}

func TestUseGetDisabledWithoutID(t *testing.T) {
	d := newFakeDoer()
	c := newWidgets(t, d, newSync(t))
	o, err := c.UseGet(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("UseGet: %v", err)
	}
	defer o.Unsubscribe()
	if st := o.State(); st.Status != querysync.StatusIdle || st.HasData {
		t.Fatalf("state = %+v", st)
	}
	if d.total() != 0 {
		t.Fatalf("disabled query fetched")
	}
}

func TestUseSearchDisabledWithoutTerm(t *testing.T) {
	d := newFakeDoer()
	d.reply("GET /widgets?page=1&pageSize=20&search=ana", `{"data":[{"id":"1","name":"Ana"}],"currentPage":1,"totalPages":1}`)
	c := newWidgets(t, d, newSync(t))

	idle, err := c.UseSearch(context.Background(), "", nil)
	if err != nil {
		t.Fatalf("UseSearch: %v", err)
	}
	defer idle.Unsubscribe()
	if d.total() != 0 {
		t.Fatalf("empty search fetched")
	}

	o, err := c.UseSearch(context.Background(), "ana", nil)
	if err != nil {
		t.Fatalf("UseSearch: %v", err)
	}
	defer o.Unsubscribe()
	st, err := o.Wait(context.Background())
	if err != nil || len(st.Data.Data) != 1 {
		t.Fatalf("search = %+v, %v", st, err)
	}
}

func TestMutationsInvalidateListAndItem(t *testing.T) {
	ctx := context.Background()
	d := newFakeDoer()
	d.reply("GET /widgets?page=1&pageSize=10", `{"data":[],"currentPage":1}`)
	d.reply("GET /widgets/7", `{"isSuccess":true,"value":{"id":"7","name":"w"}}`)
	d.reply("GET /widgets/8", `{"isSuccess":true,"value":{"id":"8","name":"v"}}`)
	d.reply("PUT /widgets/7", `{"isSuccess":true,"value":{"id":"7","name":"new"}}`)
	d.reply("POST /widgets", `{"isSuccess":true,"value":{"id":"9","name":"n"}}`)
	c := newWidgets(t, d, newSync(t))

	list, err := c.UseList(ctx, ListParams{Page: 1, PageSize: 10}, nil)
	if err != nil {
		t.Fatalf("UseList: %v", err)
	}
	defer list.Unsubscribe()
	for _, id := range []string{"7", "8"} {
		o, err := c.UseGet(ctx, id, nil)
		if err != nil {
			t.Fatalf("UseGet: %v", err)
		}
		defer o.Unsubscribe()
		if _, err := o.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if _, err := list.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if _, err := c.UpdateAndSync(ctx, "7", widget{ID: "7", Name: "new"}); err != nil {
		t.Fatalf("UpdateAndSync: %v", err)
	}
	eventually(t, "list and item 7 refetch", func() bool {
		return d.count("GET /widgets?page=1&pageSize=10") == 2 && d.count("GET /widgets/7") == 2
	})
	if n := d.count("GET /widgets/8"); n != 1 {
		t.Fatalf("item 8 fetched %d times", n)
	}

	if _, err := c.CreateAndSync(ctx, widget{Name: "n"}); err != nil {
		t.Fatalf("CreateAndSync: %v", err)
	}
	eventually(t, "list refetch after create", func() bool {
		return d.count("GET /widgets?page=1&pageSize=10") == 3
	})
	if d.count("GET /widgets/7") != 2 {
		t.Fatalf("create refetched an item")
	}
}

func TestFailedMutationSkipsInvalidation(t *testing.T) {
	ctx := context.Background()
	d := newFakeDoer()
	d.reply("GET /widgets?page=1&pageSize=10", `{"data":[]}`)
	d.errs["DELETE /widgets/7"] = errors.New("409 conflict")
	c := newWidgets(t, d, newSync(t))

	list, err := c.UseList(ctx, ListParams{Page: 1, PageSize: 10}, nil)
	if err != nil {
		t.Fatalf("UseList: %v", err)
	}
	defer list.Unsubscribe()
	if _, err := list.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if err := c.DeleteAndSync(ctx, "7"); err == nil {
		t.Fatalf("expected error")
	}
	if st := list.State(); st.Fetching || d.count("GET /widgets?page=1&pageSize=10") != 1 {
		t.Fatalf("list touched by failed delete: %+v", st)
	}
}

func TestHooksNeedSync(t *testing.T) {
	c := newWidgets(t, newFakeDoer(), nil)
	if _, err := c.UseList(context.Background(), ListParams{}, nil); !errors.Is(err, ErrNoSync) {
		t.Fatalf("err = %v", err)
	}
	if err := c.ActivateAndSync(context.Background(), "1"); !errors.Is(err, ErrNoSync) {
		t.Fatalf("err = %v", err)
	}
}
