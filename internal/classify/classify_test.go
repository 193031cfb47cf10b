package classify

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const targetURL = "https://www.neopets.com/np-templates/ajax/igloo.php"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		url  string
		body string
		want Outcome
	}{
		{
			name: "purchase with item image",
			url:  targetURL,
			body: `{"success":true,"output":"<div class='igloo-item'><img src='https://images.neopets.com/items/toy_plasticigloo.gif' alt='Plastic Igloo'> You got it!</div>"}`,
			want: Outcome{Kind: KindPurchase, ItemID: "toy_plasticigloo", ItemName: "Plastic Igloo"},
		},
		{
			name: "purchase without identifiable image",
			url:  targetURL,
			body: `{"success":true,"output":"<div>You got something!</div>"}`,
			want: Outcome{Kind: KindPurchase, ItemID: "unknown"},
		},
		{
			name: "purchase with non-item image",
			url:  targetURL,
			body: `{"success":true,"output":"<img src='https://images.neopets.com/themes/h5/winter/decoration.png' alt='snow'>"}`,
			want: Outcome{Kind: KindPurchase, ItemID: "unknown"},
		},
		{
			name: "purchase with empty output",
			url:  targetURL,
			body: `{"success":true}`,
			want: Outcome{Kind: KindPurchase, ItemID: "unknown"},
		},
		{
			name: "cap reached error",
			url:  targetURL,
			body: `{"error":true,"errMsg":"Sorry, you cannot buy any more items today!"}`,
			want: Outcome{Kind: KindCapReached},
		},
		{
			name: "unrelated error",
			url:  targetURL,
			body: `{"error":true,"errMsg":"Something went wrong."}`,
			want: Outcome{Kind: KindNoOp},
		},
		{
			name: "failure response",
			url:  targetURL,
			body: `{"success":false}`,
			want: Outcome{Kind: KindNoOp},
		},
		{
			name: "malformed json",
			url:  targetURL,
			body: `<html>502 Bad Gateway</html>`,
			want: Outcome{Kind: KindNoOp},
		},
		{
			name: "non-target url ignored",
			url:  "https://www.neopets.com/winter/igloo.phtml",
			body: `{"success":true,"output":"<img src='/items/toy.gif' alt='Toy'>"}`,
			want: Outcome{Kind: KindNoOp},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.url, []byte(tc.body)))
		})
	}
}

func TestExtractItemStripsExtension(t *testing.T) {
	id, name := extractItem(`<img src="/items/faerie_paint_brush.png" alt=" Faerie Paint Brush ">`)
	require.Equal(t, "faerie_paint_brush", id)
	require.Equal(t, "Faerie Paint Brush", name, "alt text is trimmed")
}

func TestPageCapReached(t *testing.T) {
	require.True(t, PageCapReached("<p>You cannot get any more items today.</p>"))
	require.True(t, PageCapReached("<p>You cannot buy any more items today.</p>"))
	require.False(t, PageCapReached("<p>Welcome to the Garage Sale!</p>"))
}
