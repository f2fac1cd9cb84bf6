package htmlutil

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// FindForm returns the first form that has a field with the given name.
func FindForm(doc *goquery.Document, field string) (*goquery.Selection, bool) {
	form := doc.Find("form").FilterFunction(func(_ int, form *goquery.Selection) bool {
		return form.Find("[name]").FilterFunction(func(_ int, input *goquery.Selection) bool {
			return input.AttrOr("name", "") == field
		}).Length() > 0
	}).First()
	return form, form.Length() > 0
}

// FormValues returns the values a browser would submit for a form without
// user input, as if its first submit button was clicked.
func FormValues(form *goquery.Selection) url.Values {
	values := url.Values{}
	form.Find("input, select, textarea").Each(func(_ int, field *goquery.Selection) {
		name, ok := field.Attr("name")
		if !ok || name == "" {
			return
		}
		_, disabled := field.Attr("disabled")
		if disabled {
			return
		}

		switch goquery.NodeName(field) {
		case "textarea":
			values.Add(name, field.Text())
		case "select":
			selected := field.Find("option[selected]").First()
			if selected.Length() == 0 {
				selected = field.Find("option").First()
			}
			if selected.Length() > 0 {
				values.Add(name, selected.AttrOr("value", strings.TrimSpace(selected.Text())))
			}
		default:
			switch strings.ToLower(field.AttrOr("type", "text")) {
			case "submit", "button", "image", "reset", "file":
			case "checkbox", "radio":
				if _, checked := field.Attr("checked"); checked {
					values.Add(name, field.AttrOr("value", "on"))
				}
			default:
				values.Add(name, field.AttrOr("value", ""))
			}
		}
	})

	submit := form.Find("button, input[type=submit]").FilterFunction(func(_ int, button *goquery.Selection) bool {
		if goquery.NodeName(button) == "input" {
			return true
		}
		kind := strings.ToLower(button.AttrOr("type", "submit"))
		return kind == "submit"
	}).First()
	if name := submit.AttrOr("name", ""); name != "" {
		values.Add(name, submit.AttrOr("value", ""))
	}
	return values
}

// FormAction resolves where a form submits to. Relative actions resolve
// against the page's <base href>, or the site root when the page has none
// since game pages address everything as "page=..." from the root. Forms
// without an action submit to the page itself.
func FormAction(form *goquery.Selection, page *url.URL) (*url.URL, error) {
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		return page, nil
	}
	ref, err := url.Parse(action)
	if err != nil {
		return nil, err
	}

	base := &url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/"}
	href, ok := form.Parents().Last().Find("base[href]").First().Attr("href")
	if ok && strings.TrimSpace(href) != "" {
		baseRef, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return nil, err
		}
		base = page.ResolveReference(baseRef)
	}
	return base.ResolveReference(ref), nil
}
