// Package nfexml normaliza el XML de una NF-e (nfeProc o NFe) a entity.FiscalRecord.
//
// El XML se carga con etree y se convierte en un árbol genérico donde los atributos
// se fusionan como hijos hoja, antes de los elementos. Así infNFe@Id e infNFe/Id se
// leen igual, y un nodo repetido o único se recorre siempre con Seq.
package nfexml

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/ianaindex"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Node nodo del árbol genérico. Todos los métodos aceptan receptor nil.
type Node struct {
	Name     string
	text     string
	children []*Node
}

// Text devuelve el contenido de texto del nodo ("" si nil).
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.text)
}

// Child devuelve el primer hijo con ese nombre o nil.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Seq devuelve todos los hijos con ese nombre en orden de documento.
// Un hijo único produce una lista de un elemento; ausente, nil.
func (n *Node) Seq(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Group devuelve el primer hijo cuyo nombre empieza por prefix (ICMS00, IPITrib, PISAliq...).
func (n *Node) Group(prefix string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.children {
		if strings.HasPrefix(c.Name, prefix) && len(c.children) > 0 {
			return c
		}
	}
	return nil
}

// Str recorre path con Child y devuelve el texto final ("" si falta cualquier tramo).
func (n *Node) Str(path ...string) string {
	cur := n
	for _, p := range path {
		cur = cur.Child(p)
		if cur == nil {
			return ""
		}
	}
	return cur.Text()
}

// Load parsea el XML y devuelve un nodo documento cuyo único hijo es la raíz.
func Load(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(bytes.TrimPrefix(data, utf8BOM)); err != nil {
		return nil, fmt.Errorf("ler XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("ler XML: documento sem elemento raiz")
	}
	return &Node{Name: "#document", children: []*Node{fromElement(root)}}, nil
}

func fromElement(el *etree.Element) *Node {
	n := &Node{Name: el.Tag, text: el.Text()}
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		n.children = append(n.children, &Node{Name: a.Key, text: a.Value})
	}
	for _, c := range el.ChildElements() {
		n.children = append(n.children, fromElement(c))
	}
	return n
}

// charsetReader decodifica XML declarados en ISO-8859-1 / Windows-1252 (emisores legados).
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("charset não suportado: %s", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
